// Package timeline holds the authoritative local copy of the scene.
//
// The store is replaced wholesale whenever the server pushes a snapshot; there is no
// partial-update API. Only the reconcile layer writes to it.
package timeline

import (
	"sync"

	"sova-grid/internal/model"
)

// Snapshot is an immutable view of the store at one revision.
type Snapshot struct {
	Revision uint64
	Scene    model.Scene
}

type Store struct {
	mu       sync.RWMutex
	scene    model.Scene
	revision uint64

	// Derived caches; both are dropped on every Replace.
	scripts  map[model.Pos]model.Script
	progress map[int]playhead

	hub *hub
}

type playhead struct {
	frame    int
	progress float64
}

func New() *Store {
	return &Store{
		scene:    model.Scene{Lines: []model.Line{}},
		scripts:  map[model.Pos]model.Script{},
		progress: map[int]playhead{},
		hub:      newHub(),
	}
}

// Replace swaps in a new authoritative scene and notifies subscribers.
func (s *Store) Replace(scene model.Scene) Snapshot {
	next := scene.Clone()
	if next.Lines == nil {
		next.Lines = []model.Line{}
	}
	s.mu.Lock()
	s.scene = next
	s.revision++
	s.scripts = map[model.Pos]model.Script{}
	s.progress = map[int]playhead{}
	snap := Snapshot{Revision: s.revision, Scene: s.scene.Clone()}
	s.mu.Unlock()

	s.hub.publish(snap)
	return snap
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Revision: s.revision, Scene: s.scene.Clone()}
}

// Scene returns a copy of the current scene.
func (s *Store) Scene() model.Scene {
	return s.Snapshot().Scene
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Frame returns the frame at p without copying the whole scene.
func (s *Store) Frame(p model.Pos) (model.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.scene.FrameAt(p)
	if !ok {
		return model.Frame{}, false
	}
	return f.Clone(), true
}

// ScriptAt returns the script for p if it is resident locally: either shipped with the
// snapshot or fetched since the last Replace.
func (s *Store) ScriptAt(p model.Pos) (model.Script, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.scene.FrameAt(p); ok && f.Script != nil {
		return *f.Script, true
	}
	sc, ok := s.scripts[p]
	return sc, ok
}

// PutScript caches a fetched script body. Positions that no longer exist are ignored.
func (s *Store) PutScript(p model.Pos, script model.Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scene.Has(p) {
		return
	}
	s.scripts[p] = script
}

// SetPlayback records the playing frame of a line.
func (s *Store) SetPlayback(line, frame int, progress float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if line < 0 || line >= len(s.scene.Lines) {
		return
	}
	s.progress[line] = playhead{frame: frame, progress: progress}
}

// Progress reports playback progress in [0,1] for p, and whether p is the playing frame.
func (s *Store) Progress(p model.Pos) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ph, ok := s.progress[p.Line]
	if !ok || ph.frame != p.Frame {
		return 0, false
	}
	return ph.progress, true
}

// Playheads returns line -> playing frame for every line with known playback.
func (s *Store) Playheads() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]int, len(s.progress))
	for line, ph := range s.progress {
		out[line] = ph.frame
	}
	return out
}

// Subscribe delivers the latest snapshot after each Replace. Slow subscribers only ever see
// the newest snapshot; intermediate ones are dropped.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	return s.hub.subscribe()
}
