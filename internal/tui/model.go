// Package tui renders the conversation in a terminal.
//
// All session mutations go through the controller; the backend call runs as
// a tea.Cmd and its result comes back to Update as a roundSettledMsg, so the
// model only ever touches state from bubbletea's event loop.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/liliang-cn/policychat/internal/metrics"
	"github.com/liliang-cn/policychat/internal/session"
	"go.uber.org/zap"
)

const (
	headerHeight = 2
	footerHeight = 6
)

// roundSettledMsg carries a backend result back into the event loop
type roundSettledMsg struct {
	round *session.Round
	resp  *domain.ChatResponse
	err   error
}

// Option customizes Model construction for tests and alternate runtimes.
type Option func(*Model)

// WithRecorder feeds rejections and discarded rounds into metrics
func WithRecorder(r *metrics.Recorder) Option {
	return func(m *Model) { m.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithPlainText disables markdown rendering
func WithPlainText() Option {
	return func(m *Model) { m.markdown = false }
}

// WithContext sets the context backend calls run under
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// Model is the bubbletea model for the chat screen
type Model struct {
	ctrl     *session.Controller
	widget   domain.WidgetConfig
	recorder *metrics.Recorder
	logger   *zap.Logger
	ctx      context.Context

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	markdown bool

	showPassages bool
	notice       string // blocking validation notice
	width        int
	height       int
	ready        bool
}

// New creates the chat model over ctrl
func New(ctrl *session.Controller, widget domain.WidgetConfig, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = widget.Placeholder
	ti.CharLimit = widget.MaxInputRunes
	ti.Prompt = "› "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctrl:     ctrl,
		widget:   widget,
		logger:   zap.NewNop(),
		ctx:      context.Background(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		markdown: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.refresh()
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		if !m.ctrl.Snapshot().AwaitingResponse {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case roundSettledMsg:
		m.settle(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit
	case "ctrl+r":
		m.ctrl.Reset()
		m.notice = ""
		m.input.SetValue("")
		m.input.Placeholder = m.widget.Placeholder
		m.input.Focus()
		m.refresh()
		return nil
	case "tab":
		m.showPassages = !m.showPassages
		m.refresh()
		return nil
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case "enter":
		return m.submit()
	}

	if m.ctrl.Snapshot().AwaitingResponse {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetDraft(m.input.Value())
	return cmd
}

// submit starts a round and returns the command that performs the backend call
func (m *Model) submit() tea.Cmd {
	// input is disabled while a round is outstanding
	if m.ctrl.Snapshot().AwaitingResponse {
		return nil
	}

	round, err := m.ctrl.Begin(m.input.Value())
	if err != nil {
		if m.recorder != nil {
			m.recorder.Rejected(err)
		}
		if !errors.Is(err, domain.ErrBusy) {
			m.notice = noticeFor(err)
		}
		m.refresh()
		return nil
	}

	m.notice = ""
	m.input.SetValue("")
	m.input.Placeholder = m.widget.WaitingPlaceholder
	m.input.Blur()
	m.refresh()

	return tea.Batch(m.spinner.Tick, m.ask(round))
}

func (m *Model) ask(round *session.Round) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		resp, err := ctrl.Ask(ctx, round)
		return roundSettledMsg{round: round, resp: resp, err: err}
	}
}

func (m *Model) settle(msg roundSettledMsg) {
	if _, err := m.ctrl.Settle(msg.round, msg.resp, msg.err); err != nil {
		if errors.Is(err, domain.ErrStaleRound) && m.recorder != nil {
			m.recorder.Discarded()
		}
		m.logger.Debug("settle rejected", zap.Error(err))
	}
	if !m.ctrl.Snapshot().AwaitingResponse {
		m.input.Placeholder = m.widget.Placeholder
		m.input.Focus()
	}
	m.refresh()
}

func noticeFor(err error) string {
	if errors.Is(err, domain.ErrEmptyInput) {
		return "Please input a question"
	}
	return err.Error()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vh := max(3, height-headerHeight-footerHeight)
	if !m.ready {
		m.viewport = viewport.New(max(20, width-2), vh)
		m.ready = true
	} else {
		m.viewport.Width = max(20, width-2)
		m.viewport.Height = vh
	}
	m.input.Width = max(10, width-8)

	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(20, width-8)),
		)
		if err != nil {
			m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		} else {
			m.renderer = r
		}
	}
	m.refresh()
}

// refresh re-renders the transcript and scrolls to the newest turn
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript(m.ctrl.Snapshot()))
	m.viewport.GotoBottom()
}
