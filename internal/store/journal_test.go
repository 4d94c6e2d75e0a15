package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
	"sova-grid/internal/synth"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(context.Background(), filepath.Join(t.TempDir(), "j", journalFileName))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordAndRecent(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.Record(synth.Record{Op: "move", Step: "insert", Command: protocol.InsertFrame(0, 1, 2, protocol.TimingImmediate), At: at})
	j.Record(synth.Record{Op: "move", Step: "remove", Command: protocol.RemoveFrame(0, 0, protocol.TimingImmediate), Err: errors.New("boom"), At: at.Add(time.Second)})

	got, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Step != "remove" || got[0].Status != StatusError || got[0].Error != "boom" {
		t.Fatalf("newest entry wrong: %#v", got[0])
	}
	if got[1].Kind != string(protocol.CmdInsertFrame) || got[1].Status != StatusOK || !got[1].At.Equal(at) {
		t.Fatalf("oldest entry wrong: %#v", got[1])
	}
}

func TestJournal_Prune(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := j.Append(ctx, Entry{Op: "rename", Step: "name", Kind: "set_name", Detail: model.Pos{Frame: i}.String()}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := j.Prune(ctx, 2)
	if err != nil || n != 3 {
		t.Fatalf("Prune = %d, %v; want 3", n, err)
	}
	got, _ := j.Recent(ctx, 10)
	if len(got) != 2 || got[0].Detail != "0:4" {
		t.Fatalf("unexpected survivors %#v", got)
	}
	if _, err := j.Prune(ctx, -1); err == nil {
		t.Fatalf("negative keep must fail")
	}
}
