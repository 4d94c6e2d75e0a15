package tui

import (
	"os"
	"strings"
	"sync"
)

// Fonts differ; some terminals render box and block glyphs badly. The ASCII set keeps the
// grid legible everywhere.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference reads SOVAGRID_GLYPHS, falling back to the config value.
// Unknown values are ignored.
func applyGlyphPreference(configured string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SOVAGRID_GLYPHS")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(configured))
	}
	switch v {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func glyphPlayhead() string {
	if glyphs() == glyphSetASCII {
		return ">"
	}
	return "▶"
}

func glyphInsert() string {
	if glyphs() == glyphSetASCII {
		return "=>"
	}
	return "⤷"
}

func glyphHRule() string {
	if glyphs() == glyphSetASCII {
		return "-"
	}
	return "─"
}

func glyphDot() string {
	if glyphs() == glyphSetASCII {
		return "|"
	}
	return "·"
}

// progressBar renders p (0..1) as a bar of width cells.
func progressBar(p float64, width int) string {
	if width <= 0 {
		return ""
	}
	p = min(max(p, 0), 1)
	full := int(p*float64(width) + 0.5)
	on, off := "▰", "▱"
	if glyphs() == glyphSetASCII {
		on, off = "#", "."
	}
	return strings.Repeat(on, full) + strings.Repeat(off, width-full)
}
