package cli

import (
	"context"
	"time"

	"sova-grid/internal/engine"
	"sova-grid/internal/remote"
	"sova-grid/internal/store"
	"sova-grid/internal/timeline"
)

const sceneWait = 5 * time.Second

// live is one connected editing session.
type live struct {
	server  string
	peer    string
	client  *remote.Client
	sess    *engine.Session
	journal *store.Journal
	run     chan error
	cancel  context.CancelFunc
}

type connectOptions struct {
	copyText func(string) error
}

// connect dials the server, wires the session (journal included when enabled) and waits
// for the first scene.
func (app *App) connect(ctx context.Context, o connectOptions) (*live, error) {
	server, peer, timing, err := app.settings()
	if err != nil {
		return nil, err
	}
	log := app.logger()

	var journal *store.Journal
	if cfg, err := store.LoadConfig(); err == nil && cfg.JournalEnabled() {
		if path, err := store.JournalPath(); err == nil {
			if j, err := store.OpenJournal(ctx, path); err == nil {
				journal = j
			} else {
				log.Warn("journal unavailable", "path", path, "err", err)
			}
		}
	}

	client, err := remote.Dial(ctx, server, remote.Options{Peer: peer, Logger: log})
	if err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		return nil, err
	}

	opts := engine.Options{Timing: timing, Logger: log, CopyText: o.copyText}
	if journal != nil {
		opts.Recorder = journal
	}
	sess := engine.New(client, opts)

	runCtx, cancel := context.WithCancel(context.Background())
	l := &live{
		server:  server,
		peer:    peer,
		client:  client,
		sess:    sess,
		journal: journal,
		run:     make(chan error, 1),
		cancel:  cancel,
	}
	go func() { l.run <- sess.Run(runCtx, client.Events()) }()

	if err := waitScene(ctx, sess.Store(), sceneWait); err != nil {
		l.Close()
		return nil, noSceneError{server: server}
	}
	return l, nil
}

// Close sends pending edits, hangs up and waits for the event loop to drain.
func (l *live) Close() {
	l.sess.Close()
	_ = l.client.Close()
	select {
	case <-l.run:
	case <-time.After(time.Second):
		l.cancel()
	}
	l.cancel()
	if l.journal != nil {
		_ = l.journal.Close()
	}
}

func waitScene(ctx context.Context, st *timeline.Store, timeout time.Duration) error {
	ch, unsub := st.Subscribe()
	defer unsub()
	if st.Revision() > 0 {
		return nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return nil
	case <-t.C:
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle waits until the store has moved past rev and then gone quiet, so output reflects
// the edit just made.
func settle(st *timeline.Store, rev uint64) {
	ch, unsub := st.Subscribe()
	defer unsub()
	deadline := time.NewTimer(time.Second)
	defer deadline.Stop()
	for {
		var quiet <-chan time.Time
		if st.Revision() > rev {
			quiet = time.After(50 * time.Millisecond)
		}
		select {
		case <-ch:
		case <-quiet:
			return
		case <-deadline.C:
			return
		}
	}
}
