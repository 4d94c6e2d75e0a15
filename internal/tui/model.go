package tui

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sova-grid/internal/docs"
	"sova-grid/internal/engine"
	"sova-grid/internal/grid"
	"sova-grid/internal/model"
)

const (
	footerRows = 3
	nudgeStep  = 0.25
)

type Options struct {
	Server string
	Peer   string
	// Profile and Glyphs come from the tui section of the config file.
	Profile string
	Glyphs  string
	Logger  *slog.Logger
	// OpTimeout bounds one remote operation. Zero means 15s.
	OpTimeout time.Duration
}

type changedMsg struct{}

type opDoneMsg struct {
	op  string
	err error
}

type scriptLoadedMsg struct {
	pos    model.Pos
	script model.Script
	ok     bool
}

type promptKind int

const (
	promptRename promptKind = iota
	promptReps
	promptScript
)

type prompt struct {
	kind  promptKind
	pos   model.Pos
	lang  string
	input textinput.Model
}

type appModel struct {
	sess *engine.Session
	opts Options
	log  *slog.Logger

	keys keyMap
	help help.Model
	st   gridStyles

	view engine.View
	vp   viewport

	prompt    *prompt
	showHelp  bool
	showPeers bool
	dragging bool
	flash    string
}

func newAppModel(sess *engine.Session, opts Options) appModel {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 15 * time.Second
	}
	m := appModel{
		sess: sess,
		opts: opts,
		log:  opts.Logger,
		keys: newKeyMap(),
		help: help.New(),
		st:   newStyles(),
		vp:   viewport{width: 100, height: 30},

		showPeers: true,
	}
	m.view = sess.State()
	return m
}

func (m appModel) Init() tea.Cmd {
	return waitChanged(m.sess.Changed())
}

func waitChanged(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

// op runs fn off the UI goroutine; the session reports progress through its status.
func (m appModel) op(name string, fn func(ctx context.Context) error) tea.Cmd {
	timeout := m.opts.OpTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{op: name, err: fn(ctx)}
	}
}

func (m *appModel) refresh() {
	m.view = m.sess.State()
	m.vp = m.vp.follow(m.view.Selection.Cursor, footerRows)
}

func (m appModel) cursor() model.Pos {
	return m.view.Selection.Cursor.Pos()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.width, m.vp.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitChanged(m.sess.Changed())

	case opDoneMsg:
		if msg.err != nil {
			m.log.Debug("operation finished with error", "op", msg.op, "err", msg.err)
		}
		m.refresh()
		return m, nil

	case scriptLoadedMsg:
		if !msg.ok {
			m.flash = "script for " + msg.pos.String() + " unavailable"
			return m, nil
		}
		m.openPrompt(promptScript, msg.pos, msg.script.Content)
		m.prompt.lang = msg.script.Lang
		m.sess.SetEditing(true)
		return m, textinput.Blink

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		if m.prompt != nil {
			return m.updatePrompt(msg)
		}
		if m.showHelp {
			if key.Matches(msg, m.keys.Help, m.keys.Cancel, m.keys.Quit) {
				m.showHelp = false
			}
			return m, nil
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = true
	case key.Matches(msg, k.Peers):
		m.showPeers = !m.showPeers
	case key.Matches(msg, k.Cancel):
		if m.dragging {
			m.sess.CancelDrag()
			m.dragging = false
		} else {
			m.sess.SelectCell(m.view.Selection.Cursor)
		}

	case key.Matches(msg, k.Up):
		m.sess.MoveCursor(-1, 0, false)
	case key.Matches(msg, k.Down):
		m.sess.MoveCursor(1, 0, false)
	case key.Matches(msg, k.Left):
		m.sess.MoveCursor(0, -1, false)
	case key.Matches(msg, k.Right):
		m.sess.MoveCursor(0, 1, false)
	case key.Matches(msg, k.ExtUp):
		m.sess.MoveCursor(-1, 0, true)
	case key.Matches(msg, k.ExtDown):
		m.sess.MoveCursor(1, 0, true)
	case key.Matches(msg, k.ExtLeft):
		m.sess.MoveCursor(0, -1, true)
	case key.Matches(msg, k.ExtRight):
		m.sess.MoveCursor(0, 1, true)

	case key.Matches(msg, k.Copy):
		return m, m.op("copy", m.sess.CopyFrame)
	case key.Matches(msg, k.Paste):
		p := m.cursor()
		index := p.Frame + 1
		if m.view.Scene.FrameCount(p.Line) == 0 {
			index = 0
		}
		return m, m.op("paste", func(ctx context.Context) error {
			_, err := m.sess.PasteFrame(ctx, p.Line, index)
			return err
		})
	case key.Matches(msg, k.Longer):
		m.sess.NudgeDuration(nudgeStep)
	case key.Matches(msg, k.Shorter):
		m.sess.NudgeDuration(-nudgeStep)

	case key.Matches(msg, k.Rename):
		if f, ok := m.view.Scene.FrameAt(m.cursor()); ok {
			m.openPrompt(promptRename, m.cursor(), f.DisplayName())
			return m, textinput.Blink
		}
	case key.Matches(msg, k.Reps):
		if f, ok := m.view.Scene.FrameAt(m.cursor()); ok {
			m.openPrompt(promptReps, m.cursor(), strconv.Itoa(max(f.Repetitions, 1)))
			return m, textinput.Blink
		}
	case key.Matches(msg, k.Script):
		p := m.cursor()
		if !m.view.Scene.Has(p) {
			return m, nil
		}
		timeout := m.opts.OpTimeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			sc, ok := m.sess.Script(ctx, p)
			return scriptLoadedMsg{pos: p, script: sc, ok: ok}
		}

	case key.Matches(msg, k.Toggle):
		return m, m.op("toggle", m.sess.ToggleEnabled)
	case key.Matches(msg, k.Delete):
		return m, m.op("delete", func(ctx context.Context) error {
			_, err := m.sess.DeleteSelection(ctx)
			return err
		})

	case key.Matches(msg, k.FrameUp):
		p := m.cursor()
		if p.Frame == 0 || !m.view.Scene.Has(p) {
			return m, nil
		}
		return m, m.op("move", func(ctx context.Context) error {
			_, err := m.sess.MoveFrame(ctx, p, grid.DropZone{Line: p.Line, Insert: p.Frame - 1})
			return err
		})
	case key.Matches(msg, k.FrameDown):
		p := m.cursor()
		if p.Frame+1 >= m.view.Scene.FrameCount(p.Line) {
			return m, nil
		}
		return m, m.op("move", func(ctx context.Context) error {
			_, err := m.sess.MoveFrame(ctx, p, grid.DropZone{Line: p.Line, Insert: p.Frame + 2})
			return err
		})

	case key.Matches(msg, k.LineInsert):
		at := m.view.Selection.Cursor.Col + 1
		if m.view.Scene.LineCount() == 0 {
			at = 0
		}
		return m, m.op("insert line", func(ctx context.Context) error {
			_, err := m.sess.InsertLine(ctx, at)
			return err
		})
	case key.Matches(msg, k.LineRemove):
		at := m.view.Selection.Cursor.Col
		return m, m.op("remove line", func(ctx context.Context) error {
			return m.sess.RemoveLine(ctx, at)
		})
	case key.Matches(msg, k.LineLeft):
		from := m.view.Selection.Cursor.Col
		if from == 0 {
			return m, nil
		}
		return m, m.op("move line", func(ctx context.Context) error {
			return m.sess.MoveLine(ctx, from, from-1)
		})
	case key.Matches(msg, k.LineRight):
		from := m.view.Selection.Cursor.Col
		if from+1 >= m.view.Scene.LineCount() {
			return m, nil
		}
		return m, m.op("move line", func(ctx context.Context) error {
			return m.sess.MoveLine(ctx, from, from+1)
		})
	}
	m.refresh()
	return m, nil
}

func (m *appModel) openPrompt(kind promptKind, p model.Pos, value string) {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 256
	if kind == promptScript {
		in.CharLimit = 4096
	}
	in.SetValue(value)
	in.CursorEnd()
	in.Focus()
	m.prompt = &prompt{kind: kind, pos: p, input: in}
}

func (m appModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pr := m.prompt
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		value := pr.input.Value()
		p := pr.pos
		kind := pr.kind
		lang := pr.lang
		m.closePrompt()
		switch kind {
		case promptRename:
			return m, m.op("rename", func(ctx context.Context) error {
				return m.sess.RenameFrame(ctx, p, value)
			})
		case promptReps:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				m.flash = "repetitions must be a whole number between 1 and 16"
				return m, nil
			}
			return m, m.op("repetitions", func(ctx context.Context) error {
				return m.sess.SetRepetitions(ctx, p, n)
			})
		case promptScript:
			return m, m.op("script", func(ctx context.Context) error {
				return m.sess.SetScript(ctx, p, model.Script{Lang: lang, Content: value})
			})
		}
		return m, nil
	}
	var cmd tea.Cmd
	pr.input, cmd = pr.input.Update(msg)
	return m, cmd
}

func (m *appModel) closePrompt() {
	if m.prompt != nil && m.prompt.kind == promptScript {
		m.sess.SetEditing(false)
	}
	m.prompt = nil
}

func (m appModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil || m.showHelp {
		return m, nil
	}
	line, slot, inGrid := m.vp.hit(msg.X, msg.Y)
	pt := pointer(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inGrid {
			return m, nil
		}
		p := model.Pos{Line: line, Frame: int(slot)}
		if m.sess.BeginDrag(p, pt, msg.Alt) {
			m.dragging = true
			return m, nil
		}
		sc := m.view.Scene
		if sc.Has(p) || (line < sc.LineCount() && p.Frame == 0) {
			m.sess.SelectCell(p.Cell())
		}
	case tea.MouseActionMotion:
		if !m.dragging {
			return m, nil
		}
		m.sess.PointerMove(pt)
		if inGrid {
			m.sess.UpdateDragTarget(grid.ZoneAt(m.view.Scene, line, slot))
		} else {
			m.sess.UpdateDragTarget(nil)
		}
	case tea.MouseActionRelease:
		if !m.dragging {
			return m, nil
		}
		m.dragging = false
		return m, m.op("move", func(ctx context.Context) error {
			_, err := m.sess.CommitDrag(ctx)
			return err
		})
	}
	m.refresh()
	return m, nil
}

func (m appModel) View() string {
	title := renderTitle(m.view, m.opts.Server, m.opts.Peer, m.st)
	if m.showHelp {
		body := docsBody("keys") + "\n\n" + docsBody("drag")
		return title + "\n" + renderMarkdown(body, min(m.vp.width, 100))
	}

	v := m.view
	if !m.showPeers {
		v.Peers = nil
	}
	body := renderGrid(v, m.vp, footerRows, m.st)

	var footer []string
	if s := renderStatus(m.view, m.st); s != "" {
		footer = append(footer, s)
	}
	if m.flash != "" {
		footer = append(footer, m.st.errLine.Render(m.flash))
	}
	if m.prompt != nil {
		footer = append(footer, renderInputLine(m.vp.width, promptLabel(m.prompt), m.prompt.input.View()))
	} else {
		footer = append(footer, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.TrimRight(body, "\n"), strings.Join(footer, "\n"))
}

func promptLabel(p *prompt) string {
	switch p.kind {
	case promptRename:
		return "name " + p.pos.String() + ":"
	case promptReps:
		return "repetitions " + p.pos.String() + ":"
	default:
		return "script " + p.pos.String() + ":"
	}
}

func docsBody(topic string) string {
	body, _ := docs.Get(topic)
	return body
}
