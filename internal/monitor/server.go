// Package monitor serves a read-only live view of a session in the browser. The grid is
// pushed over server-sent events as datastar element patches.
package monitor

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"sova-grid/internal/docs"
	"sova-grid/internal/engine"
	"sova-grid/internal/format"
	"sova-grid/internal/model"
	"sova-grid/internal/timeline"
)

// Source is the session being watched.
type Source interface {
	State() engine.View
	Store() *timeline.Store
}

type Config struct {
	Source Source
	// Server is the performance server address shown in the page header.
	Server string
	Logger *slog.Logger
	// Refresh is how often playback progress is re-rendered between scene changes.
	// Zero means 250ms.
	Refresh time.Duration
	// KeepAlive is the idle interval between empty signal patches. Zero means 25s.
	KeepAlive time.Duration
}

type Server struct {
	cfg  Config
	log  *slog.Logger
	tmpl *template.Template
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("monitor: missing source")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 250 * time.Millisecond
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 25 * time.Second
	}
	tmpl, err := template.New("monitor").Funcs(template.FuncMap{
		"label": format.FrameLabel,
		"deref": func(f *model.Frame) model.Frame { return *f },
		"pct":   func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	}).Parse(templates)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, log: cfg.Logger, tmpl: tmpl}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /scene.json", s.handleSceneJSON)
	mux.HandleFunc("GET /docs", s.handleDocsIndex)
	mux.HandleFunc("GET /docs/{topic}", s.handleDoc)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	v := s.cfg.Source.State()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !v.Connected {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "disconnected\n")
		return
	}
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	grid, err := s.renderGrid()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTML(w, "page", map[string]any{
		"Server": s.cfg.Server,
		"Grid":   template.HTML(grid),
		"Topics": docs.Topics(),
	})
}

func (s *Server) handleSceneJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = format.WriteJSON(w, map[string]any{"data": s.cfg.Source.State()}, false)
}

func (s *Server) handleDocsIndex(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, "docs", map[string]any{"Topics": docs.Topics()})
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	topic := r.PathValue("topic")
	body, ok := docs.Get(topic)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeHTML(w, "doc", map[string]any{
		"Topic":  topic,
		"Body":   renderMarkdownHTML(body),
		"Topics": docs.Topics(),
	})
}

// handleEvents streams #grid patches: on every new scene, and on the refresh tick while
// something changed (playback, peers, status).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	snaps, cancel := s.cfg.Source.Store().Subscribe()
	defer cancel()

	refresh := time.NewTicker(s.cfg.Refresh)
	defer refresh.Stop()
	keepAlive := time.NewTicker(s.cfg.KeepAlive)
	defer keepAlive.Stop()

	last := ""
	push := func() {
		html, err := s.renderGrid()
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		if html == last {
			return
		}
		last = html
		if err := sse.PatchElements(html, datastar.WithSelector("#grid"), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
			s.log.Debug("monitor patch failed", "err", err)
		}
	}
	push()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-snaps:
			if !ok {
				return
			}
			push()
		case <-refresh.C:
			push()
		}
	}
}

// gridCell is one frame slot of one line.
type gridCell struct {
	Frame    *model.Frame
	Pos      model.Pos
	Selected bool
	Playing  bool
	Progress float64
	Peers    []string
	Error    bool
}

func (s *Server) renderGrid() (string, error) {
	v := s.cfg.Source.State()
	sc := v.Scene
	box := v.Selection.BoundingBox()

	peersAt := map[model.Pos][]string{}
	for _, p := range v.Peers {
		if p.Selection != nil {
			pos := p.Selection.Cursor.Pos()
			peersAt[pos] = append(peersAt[pos], p.Name)
		}
	}

	rows := make([][]gridCell, sc.MaxFrames())
	for r := range rows {
		rows[r] = make([]gridCell, sc.LineCount())
		for li := range sc.Lines {
			pos := model.Pos{Line: li, Frame: r}
			c := gridCell{Pos: pos, Peers: peersAt[pos]}
			if f, ok := sc.FrameAt(pos); ok {
				f := f
				c.Frame = &f
				c.Selected = box.Contains(pos.Cell())
				if ph, ok := v.Playheads[li]; ok && ph == r {
					c.Playing = true
					c.Progress = v.Progress[pos]
				}
				c.Error = v.Focus.Error != nil && v.Focus.Error.Pos == pos
			}
			rows[r][li] = c
		}
	}

	var buf bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&buf, "grid", map[string]any{
		"View":  v,
		"Lines": sc.Lines,
		"Rows":  rows,
	})
	return strings.TrimSpace(buf.String()), err
}

func (s *Server) writeHTML(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
