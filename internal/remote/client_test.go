package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
	"sova-grid/internal/sim"
)

func TestURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"localhost:7300":        "ws://localhost:7300/ws",
		"http://example.com":    "ws://example.com/ws",
		"https://example.com/":  "wss://example.com/ws",
		"ws://127.0.0.1:1/sock": "ws://127.0.0.1:1/sock",
	}
	for in, want := range tests {
		got, err := URL(in)
		if err != nil || got != want {
			t.Fatalf("URL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "ftp://x", "ws://"} {
		if _, err := URL(bad); err == nil {
			t.Fatalf("URL(%q) should fail", bad)
		}
	}
}

func next(t *testing.T, c *Client, kind protocol.EventKind) protocol.Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("events closed waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func dial(t *testing.T, ts *httptest.Server, peer string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, ts.URL, Options{Peer: peer, AckTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func TestClient_SendWaitsForAck(t *testing.T) {
	t.Parallel()

	srv := sim.New(sim.Options{Scene: sim.DemoScene()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := dial(t, ts, "ada")
	defer c.Close()

	if ev := next(t, c, protocol.EvConnection); !ev.Connected {
		t.Fatalf("expected connected event")
	}
	next(t, c, protocol.EvScene)

	ctx := context.Background()
	if err := c.Send(ctx, protocol.InsertFrame(2, 0, 2, protocol.TimingImmediate)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if srv.Scene().FrameCount(2) != 1 {
		t.Fatalf("ack returned before the command was applied")
	}
	ev := next(t, c, protocol.EvScene)
	if ev.Scene.FrameCount(2) != 1 {
		t.Fatalf("snapshot does not reflect insert")
	}

	err := c.Send(ctx, protocol.RemoveFrame(2, 5, protocol.TimingImmediate))
	var rerr *RemoteError
	if !errors.As(err, &rerr) || rerr.Command != protocol.CmdRemoveFrame {
		t.Fatalf("expected RemoteError, got %v", err)
	}

	if err := c.Send(ctx, protocol.GetScript(model.Pos{Line: 0, Frame: 0})); err != nil {
		t.Fatal(err)
	}
	sc := next(t, c, protocol.EvScriptContent)
	if sc.Script == nil || sc.Script.Content != "(n c 1)" {
		t.Fatalf("unexpected script %#v", sc.Script)
	}
}

func TestClient_PeerEventsAndDisconnect(t *testing.T) {
	t.Parallel()

	srv := sim.New(sim.Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	a := dial(t, ts, "ada")
	b := dial(t, ts, "bo")
	next(t, a, protocol.EvScene)
	next(t, b, protocol.EvScene)

	if err := a.Publish(protocol.Event{Kind: protocol.EvPeerEditing, Pos: model.Pos{Line: 1}, Editing: true}); err != nil {
		t.Fatal(err)
	}
	ev := next(t, b, protocol.EvPeerEditing)
	if ev.Peer != "ada" || !ev.Editing || ev.Pos.Line != 1 {
		t.Fatalf("unexpected relay %#v", ev)
	}

	_ = a.Close()
	if err := a.Send(context.Background(), protocol.GetScript(model.Pos{})); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if left := next(t, b, protocol.EvPeerLeft); left.Peer != "ada" {
		t.Fatalf("expected ada to leave, got %#v", left)
	}

	_ = b.Close()
	select {
	case <-b.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("client did not shut down")
	}
	if ev := next(t, b, protocol.EvConnection); ev.Connected {
		t.Fatalf("expected disconnected event")
	}
}
