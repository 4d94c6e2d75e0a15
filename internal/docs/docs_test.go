package docs

import (
	"strings"
	"testing"
)

func TestTopics_HaveTitlesAndBodies(t *testing.T) {
	t.Parallel()

	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("no topics embedded")
	}
	seen := map[string]bool{}
	for _, tp := range topics {
		seen[tp.Name] = true
		body, ok := Get(tp.Name)
		if !ok || strings.TrimSpace(body) == "" {
			t.Fatalf("topic %q has no body", tp.Name)
		}
		if tp.Title == tp.Name {
			t.Fatalf("topic %q lacks a heading", tp.Name)
		}
	}
	for _, want := range []string{"keys", "drag", "sequences", "protocol", "config"} {
		if !seen[want] {
			t.Fatalf("missing topic %q", want)
		}
	}
}

func TestGet_NormalizesAndRejects(t *testing.T) {
	t.Parallel()

	if _, ok := Get("  KEYS "); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	for _, bad := range []string{"", "../docs", "nope"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q) should fail", bad)
		}
	}
}
