// Package tui is the full-screen Bubble Tea front end. The Bubble Tea event
// loop is the only goroutine that touches the transcript; each stream runs
// on a worker that posts display updates back as messages tagged with a
// generation id, and messages from an older generation are dropped.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/ui"
)

const (
	inputHeight = 3
	eventBuffer = 64
)

// Options configures a Model.
type Options struct {
	Backend      chat.Backend
	Session      *chat.Session
	Model        string
	Models       []string
	Theme        string
	ShowThinking bool
	SaveDir      string

	// Store archives the session after every completed answer. Optional.
	Store *history.Store
	// RecordStats writes a stats record per stream.
	RecordStats bool
	// CopyText puts text on the system clipboard. Optional.
	CopyText func(string) error
	// Notes are shown after the welcome note, e.g. "Loaded chat.json".
	Notes []string
	Now   func() time.Time
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	opts       Options
	session    *chat.Session
	transcript *Transcript
	styles     ui.Styles

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
	ready    bool

	model        string
	models       []string
	theme        string
	showThinking bool

	// Stream bookkeeping. gen identifies the stream whose messages are
	// current; everything else in flight is stale.
	gen       uint64
	streaming bool
	cancel    context.CancelFunc
	events    chan tea.Msg
	started   time.Time
}

// New builds the chat screen.
func New(opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Session == nil {
		opts.Session = chat.NewSession()
	}
	models := slices.Clone(opts.Models)
	if !slices.Contains(models, opts.Model) {
		models = append([]string{opts.Model}, models...)
	}

	styles := ui.NewStyles(opts.Theme)

	ta := textarea.New()
	ta.Placeholder = "Type your message... (enter to send, alt+enter for a new line)"
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Busy

	m := &Model{
		opts:         opts,
		session:      opts.Session,
		transcript:   NewTranscript(styles, opts.Now),
		styles:       styles,
		input:        ta,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		model:        opts.Model,
		models:       models,
		theme:        styles.Palette.Name,
		showThinking: opts.ShowThinking,
	}

	m.welcome()
	if m.session.Len() > 0 {
		m.session.Rebuild(m.transcript, m.model)
	}
	for _, n := range opts.Notes {
		m.transcript.ShowSystemNote(n)
	}
	return m
}

func (m *Model) welcome() {
	m.transcript.ShowSystemNote(fmt.Sprintf("Welcome to ochat! Using model %s. Press F1 or type /help for keys.", m.model))
}

func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case sinkMsg:
		if msg.gen != m.gen {
			slog.Debug("discarding stale stream event", "gen", msg.gen, "current", m.gen)
			return m, nil
		}
		msg.apply(m.transcript)
		m.refresh()
		return m, waitForEvent(m.events)

	case streamDoneMsg:
		if msg.gen != m.gen {
			slog.Debug("discarding stale stream result", "gen", msg.gen, "current", m.gen)
			return m, nil
		}
		return m, m.finishStream(msg.res, msg.err)

	case persistedMsg:
		if msg.err != nil {
			slog.Warn("persist failed", "error", msg.err)
			m.transcript.ShowError(msg.err.Error())
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if _, ok := msg.(tea.MouseMsg); ok {
		// The viewport's own key bindings would clash with typing.
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.stopStream()
		return tea.Quit, true
	case "esc":
		if m.streaming {
			m.stopStream()
			m.transcript.ShowSystemNote("Response stopped.")
			m.refresh()
		}
		return nil, true
	case "enter":
		return m.submit(), true
	case "alt+enter":
		m.input.InsertString("\n")
		return nil, true
	case "ctrl+l":
		m.clear()
		return nil, true
	case "ctrl+s":
		m.save("")
		return nil, true
	case "ctrl+t":
		m.toggleTheme()
		return nil, true
	case "ctrl+k":
		m.toggleThinking()
		return nil, true
	case "ctrl+p":
		m.nextModel()
		return nil, true
	case "ctrl+y":
		m.copyLastAnswer()
		return nil, true
	case "f1":
		m.transcript.ShowSystemNote(keyHelp)
		m.refresh()
		return nil, true
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd, true
	}
	return nil, false
}

// submit handles enter: a slash command or a message to send.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if m.streaming {
		// Sending is disabled until the current answer ends.
		return nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}
	return m.send(text)
}

func (m *Model) send(text string) tea.Cmd {
	if err := m.session.Append(chat.RoleUser, text); err != nil {
		m.transcript.ShowError(err.Error())
		m.refresh()
		return nil
	}
	m.transcript.ShowUserMessage(text)
	m.refresh()
	return m.startStream()
}

// startStream launches a worker for the next answer under a new generation.
func (m *Model) startStream() tea.Cmd {
	m.gen++
	gen := m.gen

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, eventBuffer)
	m.cancel = cancel
	m.events = events
	m.streaming = true
	m.started = m.opts.Now()

	req := chat.Request{
		Model:        m.model,
		History:      m.session.Snapshot(),
		WantThinking: m.showThinking,
	}
	sink := &postingSink{ctx: ctx, gen: gen, out: events, handles: m.transcript.NewHandle}
	coord := chat.NewCoordinator(m.opts.Backend)

	go func() {
		defer close(events)
		res, err := coord.Run(ctx, req, sink)
		select {
		case events <- streamDoneMsg{gen: gen, res: res, err: err}:
		case <-ctx.Done():
		}
	}()

	return tea.Batch(waitForEvent(events), m.spinner.Tick)
}

// stopStream abandons the current stream. Its worker is cancelled and any
// message it already posted becomes stale.
func (m *Model) stopStream() {
	if !m.streaming {
		return
	}
	m.cancel()
	m.gen++
	m.streaming = false
	m.events = nil
	m.recordCancelled()
}

func (m *Model) finishStream(res *chat.Result, err error) tea.Cmd {
	m.cancel()
	m.streaming = false
	m.events = nil

	if err != nil {
		slog.Warn("stream failed", "model", m.model, "error", err)
		m.transcript.ShowError(friendlyError(err))
		m.refresh()
		return m.persist(nil, statsFailure(m, err))
	}

	if err := m.session.Append(chat.RoleAssistant, res.Answer); err != nil {
		m.transcript.ShowError(err.Error())
	}
	m.refresh()
	return m.persist(m.archiveRecord(), statsSuccess(m, res))
}

func (m *Model) clear() {
	m.stopStream()
	m.session.Clear()
	m.transcript.Reset()
	m.transcript.ShowSystemNote("Chat cleared")
	m.welcome()
	m.refresh()
}

func (m *Model) save(path string) {
	msgs := m.session.Snapshot()
	var err error
	if path == "" {
		path, err = history.SaveNew(m.opts.SaveDir, msgs, m.opts.Now())
	} else {
		err = history.SaveFile(path, msgs)
	}
	if err != nil {
		slog.Warn("save failed", "path", path, "error", err)
		m.transcript.ShowError("Save failed: " + err.Error())
	} else {
		m.transcript.ShowSystemNote("Chat saved to " + path)
	}
	m.refresh()
}

func (m *Model) toggleTheme() {
	if m.streaming {
		m.transcript.ShowSystemNote("Wait for the current answer before switching themes.")
		m.refresh()
		return
	}
	m.setTheme(ui.Toggle(m.theme))
}

func (m *Model) setTheme(theme string) {
	m.styles = ui.NewStyles(theme)
	m.theme = m.styles.Palette.Name
	m.spinner.Style = m.styles.Busy
	m.transcript.SetStyles(m.styles)

	m.transcript.Reset()
	m.session.Rebuild(m.transcript, m.model)
	m.transcript.ShowSystemNote("Theme: " + m.theme)
	m.refresh()
}

func (m *Model) toggleThinking() {
	m.showThinking = !m.showThinking
	state := "hidden"
	if m.showThinking {
		state = "shown"
	}
	m.transcript.ShowSystemNote("Thinking is now " + state + " for new answers.")
	m.refresh()
}

func (m *Model) nextModel() {
	if len(m.models) == 0 {
		return
	}
	i := slices.Index(m.models, m.model)
	m.setModel(m.models[(i+1)%len(m.models)])
}

func (m *Model) setModel(model string) {
	if m.streaming {
		m.transcript.ShowSystemNote("Wait for the current answer before switching models.")
		m.refresh()
		return
	}
	if !slices.Contains(m.models, model) {
		m.models = append(m.models, model)
	}
	m.model = model
	m.transcript.ShowSystemNote("Model: " + model)
	m.refresh()
}

func (m *Model) copyLastAnswer() {
	last, ok := m.session.Last(chat.RoleAssistant)
	switch {
	case !ok:
		m.transcript.ShowSystemNote("Nothing to copy yet.")
	case m.opts.CopyText == nil:
		m.transcript.ShowError("Clipboard is not available.")
	default:
		if err := m.opts.CopyText(last.Content); err != nil {
			m.transcript.ShowError("Copy failed: " + err.Error())
		} else {
			m.transcript.ShowSystemNote("Copied last answer to the clipboard.")
		}
	}
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(width)

	// header + input border + help line
	chrome := 1 + inputHeight + 1 + 1
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 3)
	m.ready = true
	m.transcript.ScrollToEnd()
	m.refresh()
}

// refresh redraws the viewport from the transcript.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.transcript.Render(m.viewport.Width))
	if m.transcript.TakeScroll() || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.styles.Input.Width(m.width).Render(m.input.View()),
		m.styles.Help.Render(shortHelp),
	)
}

func (m *Model) header() string {
	status := m.styles.Ready.Render("●") + m.styles.StatusText.Render(" Ready")
	if m.streaming {
		status = m.styles.Busy.Render("●") + m.styles.StatusText.Render(" Processing... ") + m.spinner.View()
	}
	thinking := "thinking off"
	if m.showThinking {
		thinking = "thinking on"
	}
	left := m.styles.Header.Render("ochat") + m.styles.StatusText.Render(m.model+" · "+thinking)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(status)-1, 1)
	return left + strings.Repeat(" ", gap) + status
}

// Streaming reports whether an answer is in flight.
func (m *Model) Streaming() bool {
	return m.streaming
}

// Shutdown cancels any stream still running when the program exits.
func (m *Model) Shutdown() {
	m.stopStream()
}

func friendlyError(err error) string {
	var be *chat.BackendError
	if errors.As(err, &be) {
		err = be.Err
	}
	return "Error: " + err.Error()
}
