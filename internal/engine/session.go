// Package engine ties the timeline store, the interaction state and the synthesizer into one
// session that a UI drives.
//
// All interaction state sits behind a single mutex, so the session behaves like one logical
// interaction thread. Remote sequences run on the caller's goroutine without holding that
// lock; gestures issued while a sequence is in flight may interleave with it, and the next
// scene snapshot settles any inconsistency.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sova-grid/internal/grid"
	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
	"sova-grid/internal/reconcile"
	"sova-grid/internal/synth"
	"sova-grid/internal/timeline"
)

var ErrClipboardEmpty = errors.New("clipboard is empty")

// Conn is the connection a session talks through.
type Conn interface {
	Send(ctx context.Context, cmd protocol.Command) error
	Publish(ev protocol.Event) error
}

type Options struct {
	Timing   protocol.Timing
	Poll     synth.PollPolicy
	Logger   *slog.Logger
	Recorder synth.Recorder
	Lang     string

	// ResizeDebounce is the quiet period before nudged durations are sent.
	ResizeDebounce time.Duration

	// CopyText, when set, receives the script body of every copied frame (system clipboard).
	CopyText func(string) error
}

// View is an immutable snapshot of everything a renderer needs.
type View struct {
	Revision  uint64                `json:"revision"`
	Scene     model.Scene           `json:"scene"`
	Selection grid.Selection        `json:"selection"`
	Drag      grid.DragView         `json:"drag"`
	Clipboard grid.ClipboardView    `json:"clipboard"`
	Focus     grid.Focus            `json:"focus"`
	Peers     []grid.Peer           `json:"peers"`
	Playheads map[int]int           `json:"playheads"`
	Progress  map[model.Pos]float64 `json:"-"`
	Connected bool                  `json:"connected"`
	Status    string                `json:"status"`
	Busy      int                   `json:"busy"`
}

type Session struct {
	mu sync.Mutex
	ui reconcile.UI

	store    *timeline.Store
	rec      *reconcile.Reconciler
	syn      *synth.Synthesizer
	conn     Conn
	resize   *ResizeDebouncer
	log      *slog.Logger
	copyText func(string) error

	busy    int
	changed chan struct{}
}

func New(conn Conn, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	store := timeline.New()
	s := &Session{
		store:    store,
		rec:      reconcile.New(store, opts.Logger),
		conn:     conn,
		log:      opts.Logger,
		copyText: opts.CopyText,
		changed:  make(chan struct{}, 1),
	}
	s.syn = synth.New(conn, store, synth.Options{
		Timing:      opts.Timing,
		Poll:        opts.Poll,
		Logger:      opts.Logger,
		Recorder:    opts.Recorder,
		DefaultLang: opts.Lang,
	})
	s.resize = NewResizeDebouncer(opts.ResizeDebounce, s.applyResize)
	return s
}

func (s *Session) Store() *timeline.Store { return s.store }

// Changed signals (coalesced) that State would return something new.
func (s *Session) Changed() <-chan struct{} { return s.changed }

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Session) State() View {
	snap := s.store.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Revision:  snap.Revision,
		Scene:     snap.Scene,
		Selection: s.ui.Selection.Clamp(snap.Scene),
		Drag:      s.ui.Drag.View(),
		Clipboard: s.ui.Clipboard.View(),
		Focus:     s.ui.Focus,
		Peers:     s.ui.Peers.List(),
		Playheads: s.store.Playheads(),
		Progress:  map[model.Pos]float64{},
		Connected: s.ui.Connected,
		Status:    s.ui.Status,
		Busy:      s.busy,
	}
	for line, frame := range v.Playheads {
		p := model.Pos{Line: line, Frame: frame}
		if pr, ok := s.store.Progress(p); ok {
			v.Progress[p] = pr
		}
	}
	if v.Focus.Error != nil {
		e := *v.Focus.Error
		v.Focus.Error = &e
	}
	return v
}

// Cursor is the frame position under the (unclamped) cursor.
func (s *Session) Cursor() model.Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui.Selection.Cursor.Pos()
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.ui.Status = msg
	s.mu.Unlock()
	s.notify()
}

// HandleEvent folds one server event into the session.
func (s *Session) HandleEvent(ev protocol.Event) {
	s.mu.Lock()
	changed := s.rec.Apply(&s.ui, ev)
	s.mu.Unlock()
	if changed || ev.Kind == protocol.EvScene {
		s.notify()
	}
}

// Run applies events until ctx is done or events is closed.
func (s *Session) Run(ctx context.Context, events <-chan protocol.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ev)
		}
	}
}

// Close sends pending resizes.
func (s *Session) Close() {
	s.resize.Flush()
	s.resize.Stop()
}

func (s *Session) SelectCell(c model.Cell) {
	s.mu.Lock()
	s.ui.Selection.Reset(c)
	sel := s.ui.Selection
	s.mu.Unlock()
	s.publishSelection(sel)
}

func (s *Session) ExtendSelection(c model.Cell) {
	s.mu.Lock()
	s.ui.Selection.Extend(c)
	sel := s.ui.Selection
	s.mu.Unlock()
	s.publishSelection(sel)
}

// MoveCursor steps the cursor by (dRow, dCol), extending the selection when extend is set.
func (s *Session) MoveCursor(dRow, dCol int, extend bool) {
	sc := s.store.Scene()
	s.mu.Lock()
	s.ui.Selection = grid.Navigate(s.ui.Selection, sc, dRow, dCol, extend)
	sel := s.ui.Selection
	s.mu.Unlock()
	s.publishSelection(sel)
}

func (s *Session) publishSelection(sel grid.Selection) {
	s.notify()
	err := s.conn.Publish(protocol.Event{
		Kind:      protocol.EvPeerSelection,
		Selection: &protocol.PeerSelection{Anchor: sel.Anchor, Cursor: sel.Cursor},
	})
	if err != nil {
		s.log.Debug("selection not published", "err", err)
	}
}

// SetEditing marks the frame under the cursor as being edited (or not) and tells peers.
func (s *Session) SetEditing(editing bool) {
	s.mu.Lock()
	p := s.ui.Selection.Cursor.Pos()
	s.ui.Focus.Pos = p
	s.ui.Focus.Editing = editing
	s.mu.Unlock()
	s.notify()
	if err := s.conn.Publish(protocol.Event{Kind: protocol.EvPeerEditing, Pos: p, Editing: editing}); err != nil {
		s.log.Debug("editing focus not published", "err", err)
	}
}

// BeginDrag arms a relocation gesture on the frame at p. It needs the modifier held and a
// frame actually present at p.
func (s *Session) BeginDrag(p model.Pos, origin grid.Point, modifier bool) bool {
	f, ok := s.store.Frame(p)
	if !ok {
		return false
	}
	s.mu.Lock()
	armed := s.ui.Drag.Begin(p, f, origin, modifier)
	s.mu.Unlock()
	if armed {
		s.notify()
	}
	return armed
}

func (s *Session) PointerMove(pt grid.Point) bool {
	s.mu.Lock()
	started := s.ui.Drag.Move(pt)
	s.mu.Unlock()
	if started {
		s.notify()
	}
	return started
}

func (s *Session) UpdateDragTarget(z *grid.DropZone) {
	s.mu.Lock()
	s.ui.Drag.SetTarget(z)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) CancelDrag() {
	s.mu.Lock()
	s.ui.Drag.Cancel()
	s.mu.Unlock()
	s.notify()
}

// CommitDrag ends the gesture. A click selects the source cell; a drop runs the move
// sequence and selects the frame where it landed.
func (s *Session) CommitDrag(ctx context.Context) (grid.Outcome, error) {
	s.mu.Lock()
	out := s.ui.Drag.Release()
	s.mu.Unlock()

	switch out.Kind {
	case grid.OutcomeClick:
		s.SelectCell(out.Source.Cell())
		return out, nil
	case grid.OutcomeDrop:
	default:
		s.notify()
		return out, nil
	}

	_, err := s.move(ctx, out.Source, out.Snapshot, out.Target)
	return out, err
}

// MoveFrame relocates the frame at src without a pointer gesture.
func (s *Session) MoveFrame(ctx context.Context, src model.Pos, dst grid.DropZone) (model.Pos, error) {
	f, ok := s.store.Frame(src)
	if !ok {
		s.fail("move", synth.ErrStale)
		return src, synth.ErrStale
	}
	return s.move(ctx, src, f, dst)
}

func (s *Session) move(ctx context.Context, src model.Pos, snapshot model.Frame, dst grid.DropZone) (model.Pos, error) {
	done := s.begin()
	res, err := s.syn.Move(ctx, src, snapshot, dst)
	done()
	if err != nil {
		s.fail("move", err)
		return src, err
	}
	s.SelectCell(res.Final.Cell())
	if res.Commands > 0 {
		s.setStatus(fmt.Sprintf("moved %s to %s", src, res.Final))
	}
	return res.Final, nil
}

// CopyFrame copies the frame under the cursor.
func (s *Session) CopyFrame(ctx context.Context) error {
	p := s.Cursor()
	done := s.begin()
	f, err := s.syn.Copy(ctx, p)
	done()
	if err != nil {
		s.fail("copy", err)
		return err
	}
	s.mu.Lock()
	s.ui.Clipboard.Store(p, f)
	s.mu.Unlock()
	if s.copyText != nil && f.ScriptContent() != "" {
		if err := s.copyText(f.ScriptContent()); err != nil {
			s.log.Debug("system clipboard unavailable", "err", err)
		}
	}
	s.setStatus("copied " + p.String())
	return nil
}

// PasteFrame inserts the clipboard frame at index in line and moves the cursor onto it.
// The clipboard is left as is.
func (s *Session) PasteFrame(ctx context.Context, line, index int) (model.Pos, error) {
	s.mu.Lock()
	f, ok := s.ui.Clipboard.Content()
	s.mu.Unlock()
	if !ok {
		s.setStatus(ErrClipboardEmpty.Error())
		return model.Pos{}, ErrClipboardEmpty
	}
	done := s.begin()
	at, err := s.syn.Paste(ctx, f, line, index)
	done()
	if err != nil {
		s.fail("paste", err)
		return at, err
	}
	s.SelectCell(at.Cell())
	s.setStatus("pasted at " + at.String())
	return at, nil
}

// --- single-field edits ----------------------------------------------------

func (s *Session) ResizeFrame(ctx context.Context, p model.Pos, duration float64) error {
	done := s.begin()
	sent, err := s.syn.Resize(ctx, p, duration)
	done()
	if err != nil {
		s.fail("resize", err)
		return err
	}
	if sent {
		s.setStatus(fmt.Sprintf("%s duration %g", p, model.ClampDuration(duration)))
	}
	return nil
}

// NudgeDuration changes the duration of the frame under the cursor by delta. Repeated
// nudges are coalesced into one command.
func (s *Session) NudgeDuration(delta float64) {
	p := s.Cursor()
	cur, ok := s.resize.Pending(p)
	if !ok {
		f, found := s.store.Frame(p)
		if !found {
			return
		}
		cur = f.Duration
	}
	next := model.ClampDuration(cur + delta)
	s.resize.Notify(p, next)
	s.setStatus(fmt.Sprintf("%s duration → %g", p, next))
}

func (s *Session) applyResize(p model.Pos, duration float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.ResizeFrame(ctx, p, duration)
}

func (s *Session) RenameFrame(ctx context.Context, p model.Pos, name string) error {
	done := s.begin()
	err := s.syn.Rename(ctx, p, name)
	done()
	if err != nil {
		s.fail("rename", err)
		return err
	}
	s.setStatus("renamed " + p.String())
	return nil
}

func (s *Session) SetRepetitions(ctx context.Context, p model.Pos, n int) error {
	done := s.begin()
	err := s.syn.SetRepetitions(ctx, p, n)
	done()
	if err != nil {
		s.fail("repetitions", err)
		return err
	}
	s.setStatus(fmt.Sprintf("%s repetitions %d", p, n))
	return nil
}

// Script returns the script of the frame at p, fetching it when it is not resident.
func (s *Session) Script(ctx context.Context, p model.Pos) (model.Script, bool) {
	if _, ok := s.store.Frame(p); !ok {
		return model.Script{}, false
	}
	return s.syn.ResolveScript(ctx, p)
}

func (s *Session) SetScript(ctx context.Context, p model.Pos, script model.Script) error {
	done := s.begin()
	err := s.syn.SetScript(ctx, p, script)
	done()
	if err != nil {
		s.fail("script", err)
		return err
	}
	s.setStatus("script sent for " + p.String())
	return nil
}

// --- selection-wide edits --------------------------------------------------

// ToggleEnabled flips the selected frames of each line: all enabled become disabled,
// otherwise all become enabled.
func (s *Session) ToggleEnabled(ctx context.Context) error {
	sc := s.store.Scene()
	s.mu.Lock()
	byLine := s.ui.Selection.Positions(sc)
	s.mu.Unlock()
	if len(byLine) == 0 {
		return synth.ErrStale
	}
	done := s.begin()
	defer done()
	for line, frames := range byLine {
		enable := false
		for _, fi := range frames {
			if f, ok := sc.FrameAt(model.Pos{Line: line, Frame: fi}); ok && !f.Enabled {
				enable = true
				break
			}
		}
		if err := s.syn.SetEnabled(ctx, line, frames, enable); err != nil {
			s.fail("toggle", err)
			return err
		}
	}
	s.setStatus("toggled")
	return nil
}

// SetEnabled enables or disables explicit frames of one line.
func (s *Session) SetEnabled(ctx context.Context, line int, frames []int, enabled bool) error {
	done := s.begin()
	err := s.syn.SetEnabled(ctx, line, frames, enabled)
	done()
	if err != nil {
		s.fail("enable", err)
		return err
	}
	if enabled {
		s.setStatus(fmt.Sprintf("enabled %d frame(s) on line %d", len(frames), line))
	} else {
		s.setStatus(fmt.Sprintf("disabled %d frame(s) on line %d", len(frames), line))
	}
	return nil
}

// DeleteSelection removes every selected frame.
func (s *Session) DeleteSelection(ctx context.Context) (int, error) {
	sc := s.store.Scene()
	s.mu.Lock()
	byLine := s.ui.Selection.Positions(sc)
	s.mu.Unlock()
	done := s.begin()
	defer done()
	total := 0
	for line, frames := range byLine {
		n, err := s.syn.DeleteFrames(ctx, line, frames)
		total += n
		if err != nil {
			s.fail("delete", err)
			return total, err
		}
	}
	if total == 0 {
		return 0, synth.ErrStale
	}
	s.setStatus(fmt.Sprintf("deleted %d frame(s)", total))
	return total, nil
}

func (s *Session) InsertLine(ctx context.Context, at int) (int, error) {
	done := s.begin()
	at, err := s.syn.InsertLine(ctx, at)
	done()
	if err != nil {
		s.fail("insert line", err)
		return at, err
	}
	s.setStatus(fmt.Sprintf("inserted line %d", at))
	return at, nil
}

func (s *Session) RemoveLine(ctx context.Context, at int) error {
	done := s.begin()
	err := s.syn.RemoveLine(ctx, at)
	done()
	if err != nil {
		s.fail("remove line", err)
		return err
	}
	s.setStatus(fmt.Sprintf("removed line %d", at))
	return nil
}

func (s *Session) MoveLine(ctx context.Context, from, to int) error {
	done := s.begin()
	err := s.syn.MoveLine(ctx, from, to)
	done()
	if err != nil {
		s.fail("move line", err)
		return err
	}
	s.mu.Lock()
	if s.ui.Selection.Cursor.Col == from {
		s.ui.Selection.Reset(model.Cell{Row: s.ui.Selection.Cursor.Row, Col: to})
	}
	s.mu.Unlock()
	s.setStatus(fmt.Sprintf("moved line %d to %d", from, to))
	return nil
}

func (s *Session) begin() func() {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
	s.notify()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy--
			s.mu.Unlock()
			s.notify()
		})
	}
}

func (s *Session) fail(op string, err error) {
	switch {
	case errors.Is(err, synth.ErrStale):
		s.log.Debug("stale position", "op", op)
		s.setStatus(op + ": nothing there any more")
	default:
		s.log.Warn("operation failed", "op", op, "err", err)
		s.setStatus(op + ": " + err.Error())
	}
}
