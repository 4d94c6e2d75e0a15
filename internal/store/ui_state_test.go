package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"sova-grid/internal/model"
)

func TestUIState_SaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOVAGRID_CONFIG_DIR", dir)

	st0, err := LoadUIState()
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if st0 == nil || st0.Version != 1 {
		t.Fatalf("expected default Version=1; got %#v", st0)
	}

	want := &UIState{
		Version:   1,
		Server:    "localhost:7300",
		Anchor:    model.Cell{Row: 1, Col: 0},
		Cursor:    model.Cell{Row: 3, Col: 2},
		HidePeers: true,
	}
	if err := SaveUIState(want); err != nil {
		t.Fatalf("SaveUIState: %v", err)
	}
	got, err := LoadUIState()
	if err != nil {
		t.Fatalf("LoadUIState (after save): %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestUIState_CorruptFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOVAGRID_CONFIG_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, uiStateFileName), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := LoadUIState()
	if err != nil || st.Version != 1 || st.Cursor != (model.Cell{}) {
		t.Fatalf("expected default state, got %#v, %v", st, err)
	}
}
