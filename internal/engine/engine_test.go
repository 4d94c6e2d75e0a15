package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sova-grid/internal/grid"
	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
	"sova-grid/internal/sim"
	"sova-grid/internal/synth"
)

type countingConn struct {
	*sim.Conn
	mu    sync.Mutex
	kinds []protocol.CommandKind
	// gate, when set, holds commands of gateKind until it is closed.
	gate     chan struct{}
	gateKind protocol.CommandKind
}

func (c *countingConn) Send(ctx context.Context, cmd protocol.Command) error {
	c.mu.Lock()
	c.kinds = append(c.kinds, cmd.Kind)
	gate := c.gate
	if cmd.Kind != c.gateKind {
		gate = nil
	}
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return c.Conn.Send(ctx, cmd)
}

func (c *countingConn) hold(kind protocol.CommandKind) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = make(chan struct{})
	c.gateKind = kind
	return c.gate
}

func (c *countingConn) count(kind protocol.CommandKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func start(t *testing.T, opts Options) (*Session, *sim.Server, *countingConn) {
	t.Helper()
	srv := sim.New(sim.Options{Scene: sim.DemoScene()})
	conn := &countingConn{Conn: srv.Connect("test")}
	if opts.Poll.Attempts == 0 {
		opts.Poll = synth.PollPolicy{Attempts: 20, Interval: 10 * time.Millisecond}
	}
	s := New(conn, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx, conn.Events()) }()
	t.Cleanup(func() {
		cancel()
		s.Close()
		_ = conn.Close()
	})
	waitFor(t, "initial scene", func() bool { return s.State().Revision > 0 })
	return s, srv, conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_ClickBelowThresholdSelects(t *testing.T) {
	t.Parallel()

	s, _, conn := start(t, Options{})
	src := model.Pos{Line: 1, Frame: 0}
	if !s.BeginDrag(src, grid.Point{X: 0, Y: 0}, true) {
		t.Fatalf("BeginDrag should arm")
	}
	if s.PointerMove(grid.Point{X: 3}) {
		t.Fatalf("3 units must not start a drag")
	}
	out, err := s.CommitDrag(context.Background())
	if err != nil || out.Kind != grid.OutcomeClick {
		t.Fatalf("expected click, got %#v %v", out, err)
	}
	v := s.State()
	if v.Selection.Cursor != src.Cell() || v.Drag.State != grid.DragIdle {
		t.Fatalf("click did not select: %#v", v.Selection)
	}
	if conn.count(protocol.CmdInsertFrame) != 0 {
		t.Fatalf("click sent commands")
	}
}

func TestSession_DropMovesFrame(t *testing.T) {
	t.Parallel()

	s, srv, _ := start(t, Options{})
	src := model.Pos{Line: 0, Frame: 0}
	s.BeginDrag(src, grid.Point{}, true)
	if !s.PointerMove(grid.Point{Y: 6}) {
		t.Fatalf("6 units must start a drag")
	}
	s.UpdateDragTarget(&grid.DropZone{Line: 2, Insert: 0})
	if !s.State().Drag.IsDragging {
		t.Fatalf("expected dragging view")
	}
	if _, err := s.CommitDrag(context.Background()); err != nil {
		t.Fatalf("CommitDrag: %v", err)
	}
	sc := srv.Scene()
	if sc.FrameCount(0) != 2 || sc.FrameCount(2) != 1 {
		t.Fatalf("unexpected counts %d/%d", sc.FrameCount(0), sc.FrameCount(2))
	}
	moved, _ := sc.FrameAt(model.Pos{Line: 2})
	if moved.DisplayName() != "kick" || moved.Repetitions != 4 || moved.ScriptContent() != "(n c 1)" {
		t.Fatalf("moved frame lost fields: %#v", moved)
	}
	if s.State().Selection.Cursor != (model.Cell{Row: 0, Col: 2}) {
		t.Fatalf("cursor should follow the moved frame")
	}
}

func TestSession_CopyPaste(t *testing.T) {
	t.Parallel()

	var copied atomic.Value
	s, srv, _ := start(t, Options{CopyText: func(txt string) error { copied.Store(txt); return nil }})

	if _, err := s.PasteFrame(context.Background(), 0, 0); !errors.Is(err, ErrClipboardEmpty) {
		t.Fatalf("expected ErrClipboardEmpty, got %v", err)
	}

	s.SelectCell(model.Cell{Row: 0, Col: 1})
	if err := s.CopyFrame(context.Background()); err != nil {
		t.Fatalf("CopyFrame: %v", err)
	}
	if copied.Load() != "(prog 1 (n g 2))" {
		t.Fatalf("system clipboard got %v", copied.Load())
	}
	at, err := s.PasteFrame(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("PasteFrame: %v", err)
	}
	if at != (model.Pos{Line: 2, Frame: 0}) {
		t.Fatalf("paste landed at %v", at)
	}
	f, _ := srv.Scene().FrameAt(at)
	if f.DisplayName() != "pad" || f.Duration != 4 || f.ScriptContent() != "(prog 1 (n g 2))" {
		t.Fatalf("pasted frame wrong: %#v", f)
	}
	v := s.State()
	if !v.Clipboard.HasContent || v.Clipboard.Snapshot.DisplayName() != "pad" {
		t.Fatalf("paste must leave the clipboard intact")
	}
	if v.Selection.Cursor != at.Cell() {
		t.Fatalf("cursor not on pasted frame")
	}
}

func TestSession_NudgesAreCoalesced(t *testing.T) {
	t.Parallel()

	s, srv, conn := start(t, Options{ResizeDebounce: time.Hour})
	s.SelectCell(model.Cell{Row: 1, Col: 0})
	for i := 0; i < 3; i++ {
		s.NudgeDuration(0.5)
	}
	if conn.count(protocol.CmdSetDuration) != 0 {
		t.Fatalf("nudges sent before the quiet period")
	}
	s.resize.Flush()
	if n := conn.count(protocol.CmdSetDuration); n != 1 {
		t.Fatalf("expected one set_duration, got %d", n)
	}
	f, _ := srv.Scene().FrameAt(model.Pos{Line: 0, Frame: 1})
	if f.Duration != 2 {
		t.Fatalf("expected 0.5+1.5=2, got %g", f.Duration)
	}
}

func TestSession_CompileErrorReachesFocus(t *testing.T) {
	t.Parallel()

	s, _, _ := start(t, Options{})
	p := model.Pos{Line: 0, Frame: 1}
	s.SelectCell(p.Cell())
	if err := s.SetScript(context.Background(), p, model.Script{Content: "!error"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "compile error", func() bool { return s.State().Focus.Error != nil })

	if err := s.SetScript(context.Background(), p, model.Script{Content: "(n c)"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "error cleared", func() bool { return s.State().Focus.Error == nil })
}

func TestSession_ValidationAndStaleness(t *testing.T) {
	t.Parallel()

	s, _, conn := start(t, Options{})
	err := s.SetRepetitions(context.Background(), model.Pos{}, 20)
	if !synth.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if conn.count(protocol.CmdSetRepetitions) != 0 {
		t.Fatalf("rejected value was sent")
	}
	if s.State().Status == "" {
		t.Fatalf("status should describe the rejection")
	}
	if err := s.RenameFrame(context.Background(), model.Pos{Line: 9}, "x"); !errors.Is(err, synth.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}

func TestSession_SelectionEdits(t *testing.T) {
	t.Parallel()

	s, srv, _ := start(t, Options{})
	s.SelectCell(model.Cell{Row: 0, Col: 0})
	s.ExtendSelection(model.Cell{Row: 1, Col: 0})
	if err := s.ToggleEnabled(context.Background()); err != nil {
		t.Fatal(err)
	}
	sc := srv.Scene()
	for i := 0; i < 2; i++ {
		if f, _ := sc.FrameAt(model.Pos{Frame: i}); f.Enabled {
			t.Fatalf("frame %d should be disabled", i)
		}
	}
	n, err := s.DeleteSelection(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("DeleteSelection = %d, %v", n, err)
	}
	if got := srv.Scene().FrameCount(0); got != 1 {
		t.Fatalf("expected 1 frame left, got %d", got)
	}
}

func TestSession_DisconnectClearsClipboard(t *testing.T) {
	t.Parallel()

	s, _, _ := start(t, Options{})
	s.SelectCell(model.Cell{})
	if err := s.CopyFrame(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.HandleEvent(protocol.Event{Kind: protocol.EvConnection, Connected: false})
	v := s.State()
	if v.Clipboard.HasContent || v.Connected {
		t.Fatalf("disconnect must clear the clipboard: %#v", v.Clipboard)
	}
}

func TestSession_LineOps(t *testing.T) {
	t.Parallel()

	s, srv, _ := start(t, Options{})
	if _, err := s.InsertLine(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if srv.Scene().LineCount() != 4 || srv.Scene().FrameCount(0) != 0 {
		t.Fatalf("insert line failed")
	}
	waitFor(t, "inserted line", func() bool { return s.State().Scene.LineCount() == 4 })
	s.SelectCell(model.Cell{Col: 1})
	if err := s.MoveLine(context.Background(), 1, 3); err != nil {
		t.Fatal(err)
	}
	if srv.Scene().FrameCount(3) != 3 {
		t.Fatalf("move line failed")
	}
	if s.Cursor().Line != 3 {
		t.Fatalf("cursor should follow the moved line")
	}
	waitFor(t, "moved line", func() bool { return s.State().Scene.FrameCount(3) == 3 })
	if err := s.RemoveLine(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if srv.Scene().LineCount() != 3 {
		t.Fatalf("remove line failed")
	}
}

func TestResizeDebouncer_LastValueWins(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	got := map[model.Pos]float64{}
	calls := 0
	d := NewResizeDebouncer(20*time.Millisecond, func(p model.Pos, v float64) {
		mu.Lock()
		defer mu.Unlock()
		got[p] = v
		calls++
	})
	p := model.Pos{Line: 1, Frame: 2}
	d.Notify(p, 1)
	d.Notify(p, 2)
	d.Notify(p, 3)
	if v, ok := d.Pending(p); !ok || v != 3 {
		t.Fatalf("Pending = %v %v", v, ok)
	}
	waitFor(t, "debounced apply", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	})
	mu.Lock()
	if got[p] != 3 {
		t.Fatalf("expected last value 3, got %v", got[p])
	}
	mu.Unlock()

	d.Stop()
	d.Notify(p, 5)
	if _, ok := d.Pending(p); ok {
		t.Fatalf("stopped debouncer must ignore Notify")
	}
}

func TestResizeDebouncer_FlushWaitsForRunningBatch(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var mu sync.Mutex
	var applied []float64
	d := NewResizeDebouncer(time.Millisecond, func(_ model.Pos, v float64) {
		select {
		case started <- struct{}{}:
			<-release
		default:
		}
		mu.Lock()
		applied = append(applied, v)
		mu.Unlock()
	})
	p := model.Pos{}
	d.Notify(p, 1)
	<-started
	d.Notify(p, 2)

	flushed := make(chan struct{})
	go func() {
		d.Flush()
		close(flushed)
	}()
	select {
	case <-flushed:
		t.Fatalf("Flush returned while a batch was still being sent")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-flushed
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 2 || applied[1] != 2 {
		t.Fatalf("expected both values applied in order, got %v", applied)
	}
}

func TestSession_ResizeCountsAsBusy(t *testing.T) {
	t.Parallel()

	s, srv, conn := start(t, Options{})
	gate := conn.hold(protocol.CmdSetDuration)
	p := model.Pos{Line: 0, Frame: 0}
	errc := make(chan error, 1)
	go func() { errc <- s.ResizeFrame(context.Background(), p, 3) }()

	waitFor(t, "resize in flight", func() bool { return s.State().Busy == 1 })
	close(gate)
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if s.State().Busy != 0 {
		t.Fatalf("busy not released after resize")
	}
	if f, _ := srv.Scene().FrameAt(p); f.Duration != 3 {
		t.Fatalf("duration not applied: %v", f.Duration)
	}
}
