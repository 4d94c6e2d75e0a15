// Package synth turns user intents into ordered sequences of primitive remote commands.
//
// The server only offers insert-at, remove-at, single-field setters and whole-scene replace,
// so moves and copies are emulated. Each step waits for the previous one to be acknowledged;
// a failed step aborts the sequence without rollback. The synthesizer never writes to the
// local scene; it only reads it to compute indices.
package synth

import (
	"context"
	"log/slog"
	"time"

	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
)

// Sender delivers one command and returns once the server acknowledged (or rejected) it.
type Sender interface {
	Send(ctx context.Context, cmd protocol.Command) error
}

// SceneReader is the read side of the timeline store.
type SceneReader interface {
	Scene() model.Scene
	Frame(p model.Pos) (model.Frame, bool)
	ScriptAt(p model.Pos) (model.Script, bool)
}

// Record is one sent (or failed) command, for journaling.
type Record struct {
	Op      string
	Step    string
	Command protocol.Command
	Err     error
	At      time.Time
}

type Recorder interface {
	Record(r Record)
}

// PollPolicy bounds the wait for a fetched script to arrive.
type PollPolicy struct {
	Attempts int
	Interval time.Duration
}

var DefaultPoll = PollPolicy{Attempts: 10, Interval: 50 * time.Millisecond}

type Options struct {
	Timing   protocol.Timing
	Poll     PollPolicy
	Logger   *slog.Logger
	Recorder Recorder
	// DefaultLang tags scripts whose body could not be fetched.
	DefaultLang string
}

type Synthesizer struct {
	sender   Sender
	scene    SceneReader
	timing   protocol.Timing
	poll     PollPolicy
	log      *slog.Logger
	recorder Recorder
	lang     string
	now      func() time.Time
}

func New(sender Sender, scene SceneReader, opts Options) *Synthesizer {
	if opts.Timing == "" {
		opts.Timing = protocol.TimingImmediate
	}
	if opts.Poll.Attempts <= 0 {
		opts.Poll = DefaultPoll
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.DefaultLang == "" {
		opts.DefaultLang = "bali"
	}
	return &Synthesizer{
		sender:   sender,
		scene:    scene,
		timing:   opts.Timing,
		poll:     opts.Poll,
		log:      opts.Logger,
		recorder: opts.Recorder,
		lang:     opts.DefaultLang,
		now:      time.Now,
	}
}

func (s *Synthesizer) Timing() protocol.Timing { return s.timing }

// sequence runs the steps of one operation strictly in order.
type sequence struct {
	s    *Synthesizer
	ctx  context.Context
	op   string
	done int
}

func (s *Synthesizer) begin(ctx context.Context, op string) *sequence {
	return &sequence{s: s, ctx: ctx, op: op}
}

func (q *sequence) send(step string, cmd protocol.Command) error {
	err := cmd.Validate()
	if err == nil {
		err = q.s.sender.Send(q.ctx, cmd)
	}
	if q.s.recorder != nil {
		q.s.recorder.Record(Record{Op: q.op, Step: step, Command: cmd, Err: err, At: q.s.now()})
	}
	if err != nil {
		q.s.log.Warn("sequence step failed", "op", q.op, "step", step, "cmd", cmd.Describe(), "completed", q.done, "err", err)
		return &SequenceError{Op: q.op, Step: step, Completed: q.done, Err: err}
	}
	q.s.log.Debug("sequence step", "op", q.op, "step", step, "cmd", cmd.Describe())
	q.done++
	return nil
}

// ResolveScript returns the script for p, fetching it when it is not resident.
// The wait is a bounded poll; when it runs out the result is an empty body and ok=false.
func (s *Synthesizer) ResolveScript(ctx context.Context, p model.Pos) (model.Script, bool) {
	if sc, ok := s.scene.ScriptAt(p); ok {
		return sc, true
	}
	if err := s.sender.Send(ctx, protocol.GetScript(p)); err != nil {
		s.log.Warn("script fetch failed", "pos", p, "err", err)
		return model.Script{Lang: s.lang}, false
	}
	t := time.NewTimer(s.poll.Interval)
	defer t.Stop()
	for i := 0; i < s.poll.Attempts; i++ {
		if sc, ok := s.scene.ScriptAt(p); ok {
			return sc, true
		}
		select {
		case <-ctx.Done():
			return model.Script{Lang: s.lang}, false
		case <-t.C:
			t.Reset(s.poll.Interval)
		}
	}
	if sc, ok := s.scene.ScriptAt(p); ok {
		return sc, true
	}
	s.log.Info("script fetch gave up", "pos", p, "attempts", s.poll.Attempts)
	return model.Script{Lang: s.lang}, false
}

// Copy snapshots the full value of the frame at src, fetching its script if needed.
func (s *Synthesizer) Copy(ctx context.Context, src model.Pos) (model.Frame, error) {
	f, ok := s.scene.Frame(src)
	if !ok {
		return model.Frame{}, ErrStale
	}
	sc, _ := s.ResolveScript(ctx, src)
	f.Script = &sc
	return f, nil
}
