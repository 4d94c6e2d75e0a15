package tui

import "testing"

func TestGlyphs_FromEnvThenConfig(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })

	t.Setenv("SOVAGRID_GLYPHS", "")
	setGlyphs(glyphSetUnicode)
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs by default; got %v", got)
	}

	applyGlyphPreference("ascii")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected config to select ascii; got %v", got)
	}

	t.Setenv("SOVAGRID_GLYPHS", "unicode")
	applyGlyphPreference("ascii")
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected env to win over config; got %v", got)
	}

	setGlyphs(glyphSetASCII)
	t.Setenv("SOVAGRID_GLYPHS", "bogus")
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected unknown to be ignored; got %v", got)
	}
}

func TestProgressBar(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })
	setGlyphs(glyphSetASCII)

	tests := []struct {
		p    float64
		want string
	}{
		{0, "...."},
		{0.5, "##.."},
		{1, "####"},
		{7, "####"},
		{-1, "...."},
	}
	for _, tc := range tests {
		if got := progressBar(tc.p, 4); got != tc.want {
			t.Fatalf("progressBar(%v) = %q; want %q", tc.p, got, tc.want)
		}
	}
}
