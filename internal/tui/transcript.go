package tui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/ui"
)

type entryKind int

const (
	noteEntry entryKind = iota
	errorEntry
	userEntry
	assistantEntry
)

type entry struct {
	kind     entryKind
	at       time.Time
	model    string
	text     string
	thinking string
	answer   []chat.Segment

	// rendered output, valid for width
	cache string
	width int
}

func (e *entry) invalidate() {
	e.cache, e.width = "", 0
}

// Transcript is the conversation as the full-screen UI shows it. It is the
// UI-context implementation of chat.Sink: only the Bubble Tea event loop
// may call its methods. Workers reach it through a postingSink.
type Transcript struct {
	styles  ui.Styles
	now     func() time.Time
	entries []*entry
	open    map[chat.Handle]*entry
	follow  bool

	handles atomic.Int64
}

// NewTranscript returns an empty transcript drawn with styles.
func NewTranscript(styles ui.Styles, now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{
		styles: styles,
		now:    now,
		open:   map[chat.Handle]*entry{},
	}
}

// NewHandle allocates an assistant message handle. Unlike the other
// methods it is safe to call from any goroutine.
func (t *Transcript) NewHandle() chat.Handle {
	return chat.Handle(t.handles.Add(1))
}

// Open starts an assistant message under a handle from NewHandle.
func (t *Transcript) Open(h chat.Handle, model string) {
	e := &entry{kind: assistantEntry, at: t.now(), model: model}
	t.entries = append(t.entries, e)
	t.open[h] = e
}

func (t *Transcript) ShowSystemNote(text string) {
	t.entries = append(t.entries, &entry{kind: noteEntry, at: t.now(), text: text})
	t.follow = true
}

// ShowError adds a failure notice.
func (t *Transcript) ShowError(text string) {
	t.entries = append(t.entries, &entry{kind: errorEntry, at: t.now(), text: text})
	t.follow = true
}

func (t *Transcript) ShowUserMessage(text string) {
	t.entries = append(t.entries, &entry{kind: userEntry, at: t.now(), text: text})
	t.follow = true
}

func (t *Transcript) BeginAssistantMessage(model string) chat.Handle {
	h := t.NewHandle()
	t.Open(h, model)
	return h
}

func (t *Transcript) ReplaceThinkingRegion(h chat.Handle, text string) {
	if e := t.open[h]; e != nil {
		e.thinking = text
		e.invalidate()
	}
}

func (t *Transcript) ReplaceAnswerRegion(h chat.Handle, segs []chat.Segment) {
	if e := t.open[h]; e != nil {
		e.answer = segs
		e.invalidate()
	}
}

func (t *Transcript) ScrollToEnd() {
	t.follow = true
}

// TakeScroll reports whether a scroll to the end was requested since the
// last call.
func (t *Transcript) TakeScroll() bool {
	f := t.follow
	t.follow = false
	return f
}

// Reset drops every entry. Handles already given out stop resolving, so
// late updates for them are ignored.
func (t *Transcript) Reset() {
	t.entries = nil
	t.open = map[chat.Handle]*entry{}
	t.follow = true
}

// SetStyles switches the theme and forces a full re-render.
func (t *Transcript) SetStyles(styles ui.Styles) {
	t.styles = styles
	for _, e := range t.entries {
		e.invalidate()
	}
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Render draws the transcript for a viewport width columns wide. Entries
// that have not changed since the last call come from cache.
func (t *Transcript) Render(width int) string {
	if width < 10 {
		width = 10
	}
	parts := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.cache == "" || e.width != width {
			e.cache = t.renderEntry(e, width)
			e.width = width
		}
		parts = append(parts, e.cache)
	}
	return strings.Join(parts, "\n\n")
}

func (t *Transcript) renderEntry(e *entry, width int) string {
	s := t.styles
	stamp := e.at.Format("15:04")

	switch e.kind {
	case noteEntry:
		return s.Note.Render("• " + e.text)
	case errorEntry:
		return s.Error.Width(width).Render("✗ " + e.text)
	case userEntry:
		return s.UserLabel.Render(fmt.Sprintf("[%s] You", stamp)) + "\n" +
			s.UserBody.Width(width-2).Render(e.text)
	}

	var b strings.Builder
	b.WriteString(s.AssistHead.Render(fmt.Sprintf("[%s] %s", stamp, e.model)))
	if e.thinking != "" {
		b.WriteString("\n")
		b.WriteString(s.Thinking.Width(width - 2).Render(strings.TrimRight(e.thinking, "\n")))
	}
	for _, seg := range e.answer {
		b.WriteString("\n")
		if seg.Kind == chat.CodeBlock {
			b.WriteString(t.renderCode(seg, width))
			continue
		}
		b.WriteString(s.AssistBody.Render(ui.Markdown(seg.Text, s.Palette.Name, width-2)))
	}
	if e.thinking == "" && len(e.answer) == 0 {
		b.WriteString("\n")
		b.WriteString(s.Note.Render("…"))
	}
	return b.String()
}

func (t *Transcript) renderCode(seg chat.Segment, width int) string {
	s := t.styles
	lang := seg.Language
	if lang == "" {
		lang = "code"
	}
	code := strings.TrimSuffix(strings.TrimPrefix(seg.Text, "\n"), "\n")
	body := ui.Highlight(code, seg.Language, s.Palette.CodeStyle)
	return s.CodeBox.Width(width - 2).Render(s.CodeBadge.Render(lang) + "\n" + strings.TrimRight(body, "\n"))
}
