package tui

import (
	"strings"
	"testing"
)

func TestMarkdownStyle_EnvOverride(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("SOVAGRID_MD_STYLE", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}
	t.Setenv("SOVAGRID_MD_STYLE", "")
	t.Setenv("COLORFGBG", "15;0")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark from COLORFGBG; got %q", got)
	}
	t.Setenv("COLORFGBG", "0;15")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light from COLORFGBG; got %q", got)
	}
}

func TestRenderMarkdown_RendersAndCaches(t *testing.T) {
	t.Setenv("SOVAGRID_MD_STYLE", "dark")

	if got := renderMarkdown("   \n", 40); got != "" {
		t.Fatalf("blank input should render empty; got %q", got)
	}
	out := renderMarkdown("# Keys\n\nHold `alt` to drag.", 40)
	if !strings.Contains(out, "Keys") || !strings.Contains(out, "drag") {
		t.Fatalf("rendered markdown lost text:\n%s", out)
	}
	if strings.Contains(out, "# Keys") {
		t.Fatalf("heading marker should be rendered away:\n%s", out)
	}

	mdRendererMu.Lock()
	_, cached := mdRenderers["dark:40"]
	mdRendererMu.Unlock()
	if !cached {
		t.Fatalf("renderer should be cached by style and width")
	}
}
