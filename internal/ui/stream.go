package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/arin/ollama-chat/internal/chat"
)

// TerminalSink shows a conversation on a plain terminal. A terminal cannot
// redraw what it already printed, so each region update prints only the
// text the region gained since the last one. Code blocks are printed,
// highlighted, once their closing fence arrives; prose that may still turn
// into a code block is held back until then.
//
// Only the most recently begun assistant message is live. Updates for older
// handles are ignored.
type TerminalSink struct {
	mu        sync.Mutex
	w         io.Writer
	codeStyle string
	now       func() time.Time
	spinner   *Spinner

	header   *color.Color
	user     *color.Color
	note     *color.Color
	thinking *color.Color
	badge    *color.Color

	next     chat.Handle
	cur      chat.Handle
	live     bool
	thought  string // thinking text printed for the live message
	answered bool
	segsDone int    // answer segments printed in full
	partial  int    // bytes of the trailing prose printed
	tail     string // trailing prose of the last answer update
	midLine  bool
}

// NewTerminalSink returns a sink printing to w with the named theme's code
// highlighting.
func NewTerminalSink(w io.Writer, theme string) *TerminalSink {
	return &TerminalSink{
		w:         w,
		codeStyle: PaletteFor(theme).CodeStyle,
		now:       time.Now,
		header:    color.New(color.FgCyan, color.Bold),
		user:      color.New(color.FgGreen, color.Bold),
		note:      color.New(color.FgYellow),
		thinking:  color.New(color.FgHiBlack, color.Italic),
		badge:     color.New(color.FgHiBlue),
	}
}

// SetTheme switches code highlighting to the named theme.
func (t *TerminalSink) SetTheme(theme string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.codeStyle = PaletteFor(theme).CodeStyle
}

// WaitWith registers a spinner to stop as soon as anything is printed.
func (t *TerminalSink) WaitWith(sp *Spinner) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spinner = sp
}

func (t *TerminalSink) ShowSystemNote(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settle()
	t.note.Fprintf(t.w, "  • %s\n", text)
}

func (t *TerminalSink) ShowUserMessage(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settle()
	t.user.Fprintf(t.w, "\n  [%s] you → ", t.now().Format("15:04"))
	fmt.Fprintln(t.w, text)
}

func (t *TerminalSink) BeginAssistantMessage(model string) chat.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settle()

	t.header.Fprintf(t.w, "\n  [%s] %s →\n", t.now().Format("15:04"), model)

	t.next++
	t.cur = t.next
	t.live = true
	t.thought, t.answered = "", false
	t.segsDone, t.partial, t.tail = 0, 0, ""
	return t.cur
}

func (t *TerminalSink) ReplaceThinkingRegion(h chat.Handle, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isLive(h) || t.answered {
		return
	}
	t.stopSpinner()

	delta := text
	if strings.HasPrefix(text, t.thought) {
		delta = text[len(t.thought):]
	} else if t.thought != "" {
		delta = "\n" + text
	}
	t.thought = text
	t.print(t.thinking, delta)
}

func (t *TerminalSink) ReplaceAnswerRegion(h chat.Handle, segs []chat.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isLive(h) {
		return
	}
	t.stopSpinner()

	if !t.answered {
		t.answered = true
		if t.thought != "" {
			t.endLine()
			fmt.Fprintln(t.w)
		}
	}

	for i := t.segsDone; i < len(segs); i++ {
		s := segs[i]
		last := i == len(segs)-1

		switch {
		case s.Kind == chat.CodeBlock:
			t.printCode(s)
			t.segsDone++
		case !last:
			// A prose segment followed by anything else is final.
			t.print(nil, s.Text[min(t.partial, len(s.Text)):])
			t.segsDone++
			t.partial = 0
		default:
			cut := printableProse(s.Text)
			if cut > t.partial {
				t.print(nil, s.Text[t.partial:cut])
				t.partial = cut
			}
			t.tail = s.Text
		}
	}
	if n := len(segs); n == 0 || segs[n-1].Kind == chat.CodeBlock {
		t.tail = ""
	}
}

// ScrollToEnd does nothing: a terminal is always at its end.
func (t *TerminalSink) ScrollToEnd() {}

// Flush prints whatever prose the live message still holds back (a code
// fence that never closed) and ends the line.
func (t *TerminalSink) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settle()
}

// settle finishes the live message.
func (t *TerminalSink) settle() {
	t.stopSpinner()
	if t.live && t.partial < len(t.tail) {
		t.print(nil, t.tail[t.partial:])
	}
	t.live = false
	t.tail, t.partial = "", 0
	t.endLine()
}

func (t *TerminalSink) isLive(h chat.Handle) bool {
	return t.live && h == t.cur
}

func (t *TerminalSink) stopSpinner() {
	if t.spinner != nil {
		t.spinner.Stop()
		t.spinner = nil
	}
}

func (t *TerminalSink) printCode(s chat.Segment) {
	t.endLine()
	lang := s.Language
	if lang == "" {
		lang = "code"
	}
	t.badge.Fprintf(t.w, "  ┌─ %s\n", lang)

	code := strings.TrimSuffix(strings.TrimPrefix(s.Text, "\n"), "\n")
	for _, line := range strings.Split(Highlight(code, s.Language, t.codeStyle), "\n") {
		t.badge.Fprint(t.w, "  │ ")
		fmt.Fprintln(t.w, line)
	}
	t.badge.Fprintln(t.w, "  └─")
	t.midLine = false
}

func (t *TerminalSink) print(c *color.Color, text string) {
	if text == "" {
		return
	}
	if c != nil {
		c.Fprint(t.w, text)
	} else {
		fmt.Fprint(t.w, text)
	}
	t.midLine = !strings.HasSuffix(text, "\n")
}

func (t *TerminalSink) endLine() {
	if t.midLine {
		fmt.Fprintln(t.w)
		t.midLine = false
	}
}

// printableProse returns how much of trailing prose can be printed without
// risking it becoming part of a code block: everything before the first
// fence, minus a trailing run of backticks that may grow into one.
func printableProse(text string) int {
	if i := strings.Index(text, chat.Fence); i >= 0 {
		return i
	}
	return len(strings.TrimRight(text, "`"))
}
