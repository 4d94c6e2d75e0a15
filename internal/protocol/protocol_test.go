package protocol

import (
	"strings"
	"testing"

	"sova-grid/internal/model"
)

func TestCommandValidate(t *testing.T) {
	t.Parallel()

	good := model.NewLine()
	bad := model.Scene{Lines: []model.Line{good, good}}
	bad.Lines[1].Index = 5

	tests := []struct {
		name    string
		cmd     Command
		wantErr string
	}{
		{name: "insert ok", cmd: InsertFrame(0, 2, 1, TimingImmediate)},
		{name: "negative frame", cmd: RemoveFrame(0, -1, TimingImmediate), wantErr: "negative position"},
		{name: "reps too high", cmd: SetRepetitions(model.Pos{}, 20, TimingImmediate), wantErr: "out of range"},
		{name: "duration too small", cmd: SetDuration(model.Pos{}, 0.01, TimingImmediate), wantErr: "out of range"},
		{name: "enabled without frames", cmd: SetEnabled(0, nil, true, TimingImmediate), wantErr: "no frames"},
		{name: "replace with stale index", cmd: ReplaceScene(bad, TimingImmediate), wantErr: "carries index"},
		{name: "unknown", cmd: Command{Kind: "explode"}, wantErr: "unknown command kind"},
	}
	for _, tc := range tests {
		err := tc.cmd.Validate()
		if tc.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestInsertFrameClampsDuration(t *testing.T) {
	t.Parallel()

	c := InsertFrame(0, 0, 99, TimingImmediate)
	if c.Duration != model.MaxDuration {
		t.Fatalf("expected clamped duration, got %v", c.Duration)
	}
}

func TestSetNameEncodesNullName(t *testing.T) {
	t.Parallel()

	b, err := Encode(Envelope{Type: TypeCommand, ID: "1", Command: ptrCmd(SetName(model.Pos{Line: 1, Frame: 2}, nil, TimingImmediate))})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(b), `"name":null`) {
		t.Fatalf("expected explicit null name on the wire, got %s", b)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{`, `{"type":"command"}`, `{"type":"event"}`, `{"type":"bogus"}`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("expected decode error for %s", raw)
		}
	}
	env, err := Decode([]byte(`{"type":"ack","id":"x","error":"nope"}`))
	if err != nil || env.ID != "x" || env.Error != "nope" {
		t.Fatalf("ack decode wrong: %#v %v", env, err)
	}
}

func TestParseTiming(t *testing.T) {
	t.Parallel()

	if tm, err := ParseTiming(""); err != nil || tm != TimingImmediate {
		t.Fatalf("default timing wrong: %v %v", tm, err)
	}
	if tm, err := ParseTiming("boundary"); err != nil || tm != TimingBoundary {
		t.Fatalf("boundary timing wrong: %v %v", tm, err)
	}
	if _, err := ParseTiming("later"); err == nil {
		t.Fatalf("expected error")
	}
}

func ptrCmd(c Command) *Command { return &c }
