package monitor

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sova-grid/internal/engine"
	"sova-grid/internal/model"
	"sova-grid/internal/sim"
)

func startSession(t *testing.T) *engine.Session {
	t.Helper()
	srv := sim.New(sim.Options{Scene: sim.DemoScene()})
	conn := srv.Connect("monitor-test")
	sess := engine.New(conn, engine.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = sess.Run(ctx, conn.Events()) }()
	t.Cleanup(func() {
		cancel()
		_ = conn.Close()
	})
	deadline := time.Now().Add(2 * time.Second)
	for sess.Store().Revision() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no initial scene")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return sess
}

func TestRenderGrid_ShowsFramesAndSelection(t *testing.T) {
	sess := startSession(t)
	s, err := NewServer(Config{Source: sess, Server: "sim"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	sess.SelectCell(model.Cell{Row: 0, Col: 0})

	html, err := s.renderGrid()
	if err != nil {
		t.Fatalf("renderGrid: %v", err)
	}
	for _, want := range []string{`id="grid"`, "kick 1x4", "(break 2)", "pad 4", "selected"} {
		if !strings.Contains(html, want) {
			t.Fatalf("grid html missing %q:\n%s", want, html)
		}
	}
}

func TestHandlers_HomeDocsHealth(t *testing.T) {
	sess := startSession(t)
	s, err := NewServer(Config{Source: sess, Server: "127.0.0.1:7300"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	code, body := get("/")
	if code != http.StatusOK || !strings.Contains(body, "@get('/events')") || !strings.Contains(body, "kick 1x4") {
		t.Fatalf("home: %d\n%s", code, body)
	}
	code, body = get("/docs/keys")
	if code != http.StatusOK || !strings.Contains(body, "<table>") || !strings.Contains(body, "<h1>Keys</h1>") {
		t.Fatalf("docs/keys: %d\n%s", code, body)
	}
	if code, _ = get("/docs/nope"); code != http.StatusNotFound {
		t.Fatalf("unknown topic: got %d", code)
	}
	if code, body = get("/health"); code != http.StatusOK || strings.TrimSpace(body) != "ok" {
		t.Fatalf("health: %d %q", code, body)
	}
	if code, body = get("/scene.json"); code != http.StatusOK || !strings.Contains(body, `"revision"`) {
		t.Fatalf("scene.json: %d\n%s", code, body)
	}
}

func TestEvents_PatchesGridOnSceneChange(t *testing.T) {
	sess := startSession(t)
	s, err := NewServer(Config{Source: sess, Refresh: time.Hour})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type %q", ct)
	}

	lines := make(chan string, 256)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(substr string) {
		t.Helper()
		timeout := time.After(3 * time.Second)
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatalf("stream ended before %q", substr)
				}
				if strings.Contains(l, substr) {
					return
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	waitFor("kick 1x4")
	if err := sess.RenameFrame(context.Background(), model.Pos{Line: 0, Frame: 0}, "snare"); err != nil {
		t.Fatalf("RenameFrame: %v", err)
	}
	waitFor("snare 1x4")
}
