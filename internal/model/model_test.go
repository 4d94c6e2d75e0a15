package model

import (
	"math"
	"testing"
)

func TestClampDuration_IdempotentAndInRange(t *testing.T) {
	t.Parallel()

	inputs := []float64{-5, 0, 0.05, 0.1, 0.5, 1, 7.99, 8, 8.01, 100, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, d := range inputs {
		c := ClampDuration(d)
		if c < MinDuration || c > MaxDuration {
			t.Fatalf("ClampDuration(%v)=%v; out of range", d, c)
		}
		if cc := ClampDuration(c); cc != c {
			t.Fatalf("ClampDuration not idempotent for %v: %v then %v", d, c, cc)
		}
	}
}

func TestClampRepetitions(t *testing.T) {
	t.Parallel()

	cases := map[int]int{-1: 1, 0: 1, 1: 1, 7: 7, 16: 16, 17: 16, 20: 16}
	for in, want := range cases {
		if got := ClampRepetitions(in); got != want {
			t.Fatalf("ClampRepetitions(%d)=%d; want %d", in, got, want)
		}
	}
	if RepetitionsInRange(20) || !RepetitionsInRange(16) || RepetitionsInRange(0) {
		t.Fatalf("RepetitionsInRange boundaries wrong")
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "\t\n"} {
		if got := NormalizeName(in); got != nil {
			t.Fatalf("NormalizeName(%q)=%q; want nil", in, *got)
		}
	}
	got := NormalizeName("  kick ")
	if got == nil || *got != "kick" {
		t.Fatalf("NormalizeName trimmed value wrong: %v", got)
	}
}

func threeLines() Scene {
	s := Scene{}
	for i := 0; i < 3; i++ {
		l := NewLine()
		l.Frames = []Frame{NewFrame(float64(i + 1))}
		s.Lines = append(s.Lines, l)
	}
	s.Renumber()
	return s
}

func assertIndexed(t *testing.T, s Scene) {
	t.Helper()
	for i, l := range s.Lines {
		if l.Index != i {
			t.Fatalf("line %d has index %d", i, l.Index)
		}
	}
}

func TestScene_LineSplicesRenumber(t *testing.T) {
	t.Parallel()

	s := threeLines()

	ins := s.InsertLine(1, NewLine())
	if len(ins.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(ins.Lines))
	}
	assertIndexed(t, ins)
	if len(ins.Lines[1].Frames) != 0 || ins.Lines[2].Frames[0].Duration != 2 {
		t.Fatalf("insert placed line wrong: %#v", ins.Lines)
	}

	rm, err := s.RemoveLine(0)
	if err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	assertIndexed(t, rm)
	if rm.Lines[0].Frames[0].Duration != 2 {
		t.Fatalf("remove dropped the wrong line: %#v", rm.Lines)
	}

	mv, err := s.MoveLine(0, 2)
	if err != nil {
		t.Fatalf("MoveLine: %v", err)
	}
	assertIndexed(t, mv)
	got := []float64{mv.Lines[0].Frames[0].Duration, mv.Lines[1].Frames[0].Duration, mv.Lines[2].Frames[0].Duration}
	if got[0] != 2 || got[1] != 3 || got[2] != 1 {
		t.Fatalf("MoveLine order wrong: %v", got)
	}

	// Source scene is untouched.
	if s.Lines[0].Frames[0].Duration != 1 || len(s.Lines) != 3 {
		t.Fatalf("splices must not mutate the receiver")
	}

	if _, err := s.RemoveLine(7); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestScene_FrameAtStaleIsSafe(t *testing.T) {
	t.Parallel()

	s := threeLines()
	for _, p := range []Pos{{-1, 0}, {0, -1}, {0, 1}, {3, 0}} {
		if _, ok := s.FrameAt(p); ok {
			t.Fatalf("expected FrameAt(%v) to report missing", p)
		}
	}
	if s.MaxFrames() != 1 || s.FrameCount(9) != 0 {
		t.Fatalf("unexpected counts")
	}
}

func TestFrameClone_IsDeep(t *testing.T) {
	t.Parallel()

	n := "a"
	f := Frame{Name: &n, Script: &Script{Lang: "bali", Content: "x"}}
	c := f.Clone()
	*c.Name = "b"
	c.Script.Content = "y"
	if *f.Name != "a" || f.Script.Content != "x" {
		t.Fatalf("Clone shares pointers")
	}
}
