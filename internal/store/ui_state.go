package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"sova-grid/internal/model"
)

const uiStateFileName = "ui_state.json"

// UIState is small interactive state restored on relaunch. Loading is best effort: a
// missing or corrupt file yields defaults.
type UIState struct {
	Version int `json:"version"`

	// Server the state belongs to; a different server starts from the origin.
	Server string     `json:"server,omitempty"`
	Anchor model.Cell `json:"anchor"`
	Cursor model.Cell `json:"cursor"`

	HidePeers bool `json:"hidePeers,omitempty"`
}

func uiStatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, uiStateFileName), nil
}

func LoadUIState() (*UIState, error) {
	path, err := uiStatePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UIState{Version: 1}, nil
		}
		return nil, err
	}
	var st UIState
	if err := json.Unmarshal(b, &st); err != nil {
		return &UIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func SaveUIState(st *UIState) error {
	if st == nil {
		return nil
	}
	path, err := uiStatePath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "ui_state.json.*.tmp", path, b, 0o644)
}
