// Package sim is an in-memory performance server speaking the same command set as the real
// one. It backs `sovagrid sim` and the end-to-end tests.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
)

// ErrorMarker in a script body makes the simulated compiler reject it.
const ErrorMarker = "!error"

type Options struct {
	Scene model.Scene
	// IncludeScripts ships script bodies with every snapshot. Off by default so clients
	// go through get_script.
	IncludeScripts bool
	DefaultLang    string
	Logger         *slog.Logger
}

// RejectedError is returned for commands the server refuses.
type RejectedError struct {
	Kind   protocol.CommandKind
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Kind, e.Reason)
}

type Server struct {
	mu      sync.Mutex
	scene   model.Scene
	opts    Options
	faults  map[protocol.CommandKind]int
	seen    map[protocol.CommandKind]int
	clients map[*client]struct{}
	log     *slog.Logger
	play    map[int]*cursor
}

func New(opts Options) *Server {
	if opts.DefaultLang == "" {
		opts.DefaultLang = "bali"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		opts:    opts,
		faults:  map[protocol.CommandKind]int{},
		seen:    map[protocol.CommandKind]int{},
		clients: map[*client]struct{}{},
		log:     opts.Logger,
		play:    map[int]*cursor{},
	}
	s.scene = s.normalize(opts.Scene)
	return s
}

// DemoScene is a small scene for `sovagrid sim` when no scene is given.
func DemoScene() model.Scene {
	name := func(s string) *string { return &s }
	sc := model.Scene{Lines: []model.Line{
		{Frames: []model.Frame{
			{Duration: 1, Enabled: true, Name: name("kick"), Script: &model.Script{Lang: "bali", Content: "(n c 1)"}, Repetitions: 4},
			{Duration: 0.5, Enabled: true, Script: &model.Script{Lang: "bali", Content: "(n e 1)"}, Repetitions: 1},
			{Duration: 2, Enabled: false, Name: name("break"), Script: &model.Script{Lang: "bali", Content: ""}, Repetitions: 1},
		}, SpeedFactor: 1},
		{Frames: []model.Frame{
			{Duration: 4, Enabled: true, Name: name("pad"), Script: &model.Script{Lang: "bali", Content: "(prog 1 (n g 2))"}, Repetitions: 1},
		}, SpeedFactor: 0.5},
		{Frames: []model.Frame{}, SpeedFactor: 1},
	}}
	sc.Renumber()
	return sc
}

// FailOn makes the nth subsequent command of kind fail (n=1 is the next one).
func (s *Server) FailOn(kind protocol.CommandKind, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[kind] = s.seen[kind] + n
}

// Scene returns the full scene, scripts included.
func (s *Server) Scene() model.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Clone()
}

// Snapshot returns the scene as it is pushed to clients.
func (s *Server) Snapshot() model.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Server) snapshotLocked() model.Scene {
	out := s.scene.Clone()
	if s.opts.IncludeScripts {
		return out
	}
	for li := range out.Lines {
		for fi := range out.Lines[li].Frames {
			out.Lines[li].Frames[fi].Script = nil
		}
	}
	return out
}

func (s *Server) normalize(sc model.Scene) model.Scene {
	out := sc.Clone()
	if out.Lines == nil {
		out.Lines = []model.Line{}
	}
	for li := range out.Lines {
		if out.Lines[li].Frames == nil {
			out.Lines[li].Frames = []model.Frame{}
		}
		for fi := range out.Lines[li].Frames {
			f := &out.Lines[li].Frames[fi]
			if f.Script == nil {
				f.Script = &model.Script{Lang: s.opts.DefaultLang}
			}
			f.Duration = model.ClampDuration(f.Duration)
			f.Repetitions = model.ClampRepetitions(f.Repetitions)
		}
	}
	out.Renumber()
	return out
}

// Apply executes one command and returns the events it produced.
func (s *Server) Apply(cmd protocol.Command) ([]protocol.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(cmd)
}

func (s *Server) applyLocked(cmd protocol.Command) ([]protocol.Event, error) {
	if err := cmd.Validate(); err != nil {
		return nil, &RejectedError{Kind: cmd.Kind, Reason: err.Error()}
	}
	s.seen[cmd.Kind]++
	if at, ok := s.faults[cmd.Kind]; ok && s.seen[cmd.Kind] == at {
		delete(s.faults, cmd.Kind)
		return nil, &RejectedError{Kind: cmd.Kind, Reason: "injected fault"}
	}

	p := cmd.Pos()
	var extra []protocol.Event
	switch cmd.Kind {
	case protocol.CmdInsertFrame:
		if p.Line >= len(s.scene.Lines) {
			return nil, s.reject(cmd, "no such line")
		}
		l := &s.scene.Lines[p.Line]
		if p.Frame > len(l.Frames) {
			return nil, s.reject(cmd, "index past end of line")
		}
		f := model.NewFrame(cmd.Duration)
		f.Script = &model.Script{Lang: s.opts.DefaultLang}
		l.Frames = append(l.Frames, model.Frame{})
		copy(l.Frames[p.Frame+1:], l.Frames[p.Frame:])
		l.Frames[p.Frame] = f

	case protocol.CmdRemoveFrame:
		if !s.scene.Has(p) {
			return nil, s.reject(cmd, "no such frame")
		}
		l := &s.scene.Lines[p.Line]
		l.Frames = append(l.Frames[:p.Frame], l.Frames[p.Frame+1:]...)

	case protocol.CmdSetDuration, protocol.CmdSetName, protocol.CmdSetScript, protocol.CmdSetRepetitions:
		if !s.scene.Has(p) {
			return nil, s.reject(cmd, "no such frame")
		}
		f := &s.scene.Lines[p.Line].Frames[p.Frame]
		switch cmd.Kind {
		case protocol.CmdSetDuration:
			f.Duration = model.ClampDuration(cmd.Duration)
		case protocol.CmdSetName:
			f.Name = nil
			if cmd.Name != nil {
				n := *cmd.Name
				f.Name = &n
			}
		case protocol.CmdSetRepetitions:
			f.Repetitions = cmd.Repetitions
		case protocol.CmdSetScript:
			sc := *cmd.Script
			if sc.Lang == "" {
				sc.Lang = s.opts.DefaultLang
			}
			f.Script = &sc
			extra = append(extra, compile(p, sc))
		}

	case protocol.CmdSetEnabled:
		for _, fi := range cmd.Frames {
			if !s.scene.Has(model.Pos{Line: cmd.Line, Frame: fi}) {
				return nil, s.reject(cmd, fmt.Sprintf("no frame %d", fi))
			}
		}
		for _, fi := range cmd.Frames {
			s.scene.Lines[cmd.Line].Frames[fi].Enabled = cmd.Enabled
		}

	case protocol.CmdReplaceScene:
		s.scene = s.normalize(*cmd.Scene)
		s.play = map[int]*cursor{}

	case protocol.CmdGetScript:
		f, ok := s.scene.FrameAt(p)
		if !ok {
			return nil, s.reject(cmd, "no such frame")
		}
		sc := *f.Script
		return []protocol.Event{{Kind: protocol.EvScriptContent, Pos: p, Script: &sc}}, nil
	}

	if cmd.Timing == protocol.TimingBoundary {
		s.log.Debug("boundary timing applied immediately", "cmd", cmd.Describe())
	}
	events := []protocol.Event{protocol.SceneEvent(s.snapshotLocked())}
	return append(events, extra...), nil
}

func (s *Server) reject(cmd protocol.Command, reason string) error {
	return &RejectedError{Kind: cmd.Kind, Reason: reason}
}

func compile(p model.Pos, sc model.Script) protocol.Event {
	if i := strings.Index(sc.Content, ErrorMarker); i >= 0 {
		line := strings.Count(sc.Content[:i], "\n") + 1
		return protocol.Event{Kind: protocol.EvCompileError, Pos: p, Message: fmt.Sprintf("line %d: unexpected %s", line, ErrorMarker)}
	}
	return protocol.Event{Kind: protocol.EvFrameCompiled, Pos: p}
}

// dispatch applies cmd on behalf of a client and fans the resulting events out to every
// connection. Events are queued before the caller is answered.
func (s *Server) dispatch(cmd protocol.Command) error {
	s.mu.Lock()
	events, err := s.applyLocked(cmd)
	if err != nil {
		s.mu.Unlock()
		s.log.Info("command rejected", "cmd", cmd.Describe(), "err", err)
		return err
	}
	s.log.Debug("command applied", "cmd", cmd.Describe())
	for _, ev := range events {
		if ev.Kind == protocol.EvScriptContent {
			continue
		}
		s.broadcastLocked(nil, ev)
	}
	s.mu.Unlock()
	return nil
}

// dispatchFrom is dispatch for a connected client; script_content only goes to the asker.
func (s *Server) dispatchFrom(c *client, cmd protocol.Command) error {
	if cmd.Kind != protocol.CmdGetScript {
		return s.dispatch(cmd)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	events, err := s.applyLocked(cmd)
	if err != nil {
		return err
	}
	for _, ev := range events {
		c.deliver(ev)
	}
	return nil
}

func (s *Server) broadcastLocked(from *client, ev protocol.Event) {
	for c := range s.clients {
		if c == from {
			continue
		}
		c.deliver(ev)
	}
}

// Relay forwards a peer event from one client to all others, stamped with its peer name.
func (s *Server) relay(from *client, ev protocol.Event) {
	switch ev.Kind {
	case protocol.EvPeerSelection, protocol.EvPeerEditing:
	default:
		return
	}
	ev.Peer = from.peer
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(from, ev)
}

func (s *Server) attach(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	c.deliver(protocol.SceneEvent(s.snapshotLocked()))
}

func (s *Server) detach(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	c.close()
	if c.peer != "" {
		s.broadcastLocked(c, protocol.Event{Kind: protocol.EvPeerLeft, Peer: c.peer})
	}
}

// client is one attached connection. Its outbox is drained by a writer; when it fills up
// the client is too slow and events are dropped.
type client struct {
	peer   string
	out    chan protocol.Envelope
	once   sync.Once
	closed chan struct{}
	log    *slog.Logger
}

func newClient(peer string, log *slog.Logger) *client {
	return &client{peer: peer, out: make(chan protocol.Envelope, 256), closed: make(chan struct{}), log: log}
}

func (c *client) deliver(ev protocol.Event) {
	c.send(protocol.Envelope{Type: protocol.TypeEvent, Event: &ev})
}

func (c *client) send(env protocol.Envelope) {
	select {
	case <-c.closed:
	case c.out <- env:
	default:
		c.log.Warn("client outbox full; dropping", "peer", c.peer, "type", env.Type)
	}
}

// sendWait blocks until env is queued or the client is gone. Acks must not be dropped.
func (c *client) sendWait(env protocol.Envelope) {
	select {
	case <-c.closed:
	case c.out <- env:
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.closed) })
}

// Conn is an in-process connection to the server. It satisfies the same contract as the
// network client: Send returns after the command was applied and its events queued.
type Conn struct {
	s      *Server
	c      *client
	events chan protocol.Event
	done   chan struct{}
}

// Connect attaches an in-process client. Like the network client, it first delivers a
// connection event, then the current snapshot.
func (s *Server) Connect(peer string) *Conn {
	c := newClient(peer, s.log)
	conn := &Conn{s: s, c: c, events: make(chan protocol.Event, 256), done: make(chan struct{})}
	conn.events <- protocol.Event{Kind: protocol.EvConnection, Connected: true}
	s.attach(c)
	go conn.pump()
	return conn
}

func (c *Conn) pump() {
	defer close(c.events)
	for {
		select {
		case <-c.c.closed:
			return
		case env := <-c.c.out:
			if env.Event != nil {
				c.events <- *env.Event
			}
		}
	}
}

func (c *Conn) Send(ctx context.Context, cmd protocol.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.c.closed:
		return errors.New("sim: connection closed")
	default:
	}
	return c.s.dispatchFrom(c.c, cmd)
}

// Publish relays a peer event to the other clients.
func (c *Conn) Publish(ev protocol.Event) error {
	select {
	case <-c.c.closed:
		return errors.New("sim: connection closed")
	default:
	}
	c.s.relay(c.c, ev)
	return nil
}

func (c *Conn) Events() <-chan protocol.Event { return c.events }

func (c *Conn) Close() error {
	c.s.detach(c.c)
	return nil
}
