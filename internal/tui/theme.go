package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The grid must stay readable on light and dark terminals, so colors are adaptive and
// "faint" is only used on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorChromeFg   lipgloss.TerminalColor = ac("240", "245")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorCursorBg   lipgloss.TerminalColor = ac("27", "62")
	colorCursorFg   lipgloss.TerminalColor = ac("255", "255")
	colorFrameBg    lipgloss.TerminalColor = ac("254", "236")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorPlayingFg  lipgloss.TerminalColor = ac("28", "78")
	colorPeerFg     lipgloss.TerminalColor = ac("90", "177")
	colorErrorBg    lipgloss.TerminalColor = ac("196", "160")
	colorErrorFg    lipgloss.TerminalColor = ac("160", "203")
	colorInputBg    lipgloss.TerminalColor = ac("254", "234")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

type gridStyles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	gutter   lipgloss.Style
	frame    lipgloss.Style
	disabled lipgloss.Style
	selected lipgloss.Style
	cursor   lipgloss.Style
	playing  lipgloss.Style
	source   lipgloss.Style
	marker   lipgloss.Style
	peer     lipgloss.Style
	errLine  lipgloss.Style
	errCell  lipgloss.Style
	status   lipgloss.Style
	offline  lipgloss.Style
}

func newStyles() gridStyles {
	return gridStyles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(colorChromeFg).Bold(true),
		gutter:   styleMuted(),
		frame:    lipgloss.NewStyle().Background(colorFrameBg),
		disabled: styleMuted().Background(colorFrameBg).Italic(true),
		selected: lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg),
		cursor:   lipgloss.NewStyle().Background(colorCursorBg).Foreground(colorCursorFg).Bold(true),
		playing:  lipgloss.NewStyle().Foreground(colorPlayingFg),
		source:   styleMuted().Strikethrough(true),
		marker:   lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		peer:     lipgloss.NewStyle().Foreground(colorPeerFg),
		errLine:  lipgloss.NewStyle().Foreground(colorErrorFg),
		errCell:  lipgloss.NewStyle().Background(colorErrorBg).Foreground(colorCursorFg),
		status:   styleMuted(),
		offline:  lipgloss.NewStyle().Foreground(colorErrorFg).Bold(true),
	}
}

// applyColorProfile sets the lipgloss color profile for the grid. "mono" and NO_COLOR
// drop colors entirely; otherwise the terminal's own capabilities decide.
func applyColorProfile(profile string) {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" || strings.EqualFold(strings.TrimSpace(profile), "mono") {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	p := termenv.ColorProfile()
	if p == termenv.Ascii && strings.Contains(strings.ToLower(os.Getenv("TERM")), "256color") {
		p = termenv.ANSI256
	}
	lipgloss.SetColorProfile(p)
}
