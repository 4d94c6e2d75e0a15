// Package store keeps local state under the config directory: settings, the command
// journal and the interactive UI state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"sova-grid/internal/synth"

	_ "modernc.org/sqlite"
)

const journalFileName = "journal.sqlite"

// Entry is one journaled command.
type Entry struct {
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
	Op     string    `json:"op"`
	Step   string    `json:"step"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Journal is a local sqlite log of every command the synthesizer sent.
type Journal struct {
	db *sql.DB
}

func JournalPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, journalFileName), nil
}

// OpenJournal opens (creating if needed) the journal at path.
func OpenJournal(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL: the TUI writes while `sovagrid journal` reads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateJournal(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func migrateJournal(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at_unixms INTEGER NOT NULL,
			op TEXT NOT NULL,
			step TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_at ON commands(at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Append(ctx context.Context, e Entry) (int64, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}
	var errText any
	if e.Error != "" {
		errText = e.Error
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO commands(at_unixms, op, step, kind, detail, status, error) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.At.UnixMilli(), e.Op, e.Step, e.Kind, e.Detail, e.Status, errText)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at_unixms, op, step, kind, detail, status, error FROM commands ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			atMS   int64
			errTxt sql.NullString
		)
		if err := rows.Scan(&e.ID, &atMS, &e.Op, &e.Step, &e.Kind, &e.Detail, &e.Status, &errTxt); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(atMS).UTC()
		e.Error = errTxt.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep entries and reports how many were removed.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, errors.New("prune: keep must be >= 0")
	}
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM commands WHERE id NOT IN (SELECT id FROM commands ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Record journals one synthesizer step. Write failures are dropped; the journal never
// gets in the way of editing.
func (j *Journal) Record(r synth.Record) {
	e := Entry{
		At:     r.At,
		Op:     r.Op,
		Step:   r.Step,
		Kind:   string(r.Command.Kind),
		Detail: r.Command.Describe(),
		Status: StatusOK,
	}
	if r.Err != nil {
		e.Status = StatusError
		e.Error = r.Err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = j.Append(ctx, e)
}
