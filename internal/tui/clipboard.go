package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/muesli/termenv"
)

// copyToClipboard puts s on the system clipboard. Without a clipboard tool (ssh sessions,
// bare consoles) it falls back to an OSC 52 escape, which most terminals honor.
func copyToClipboard(s string) error {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if err := clipboard.WriteAll(s); err == nil {
		return nil
	}
	termenv.Copy(s)
	return nil
}
