package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arin/ollama-chat/internal/chat"
)

// sinkMsg carries one display update from a stream worker to the UI loop.
type sinkMsg struct {
	gen   uint64
	apply func(*Transcript)
}

// streamDoneMsg reports the end of a stream worker.
type streamDoneMsg struct {
	gen uint64
	res *chat.Result
	err error
}

// postingSink is the chat.Sink a stream worker renders into. It never
// touches the transcript: every call becomes a sinkMsg tagged with the
// worker's generation, which the UI loop applies or discards.
type postingSink struct {
	ctx     context.Context
	gen     uint64
	out     chan<- tea.Msg
	handles func() chat.Handle
}

func (s *postingSink) post(apply func(*Transcript)) {
	select {
	case s.out <- sinkMsg{gen: s.gen, apply: apply}:
	case <-s.ctx.Done():
	}
}

func (s *postingSink) ShowSystemNote(text string) {
	s.post(func(t *Transcript) { t.ShowSystemNote(text) })
}

func (s *postingSink) ShowUserMessage(text string) {
	s.post(func(t *Transcript) { t.ShowUserMessage(text) })
}

func (s *postingSink) BeginAssistantMessage(model string) chat.Handle {
	h := s.handles()
	s.post(func(t *Transcript) { t.Open(h, model) })
	return h
}

func (s *postingSink) ReplaceThinkingRegion(h chat.Handle, text string) {
	s.post(func(t *Transcript) { t.ReplaceThinkingRegion(h, text) })
}

func (s *postingSink) ReplaceAnswerRegion(h chat.Handle, segs []chat.Segment) {
	s.post(func(t *Transcript) { t.ReplaceAnswerRegion(h, segs) })
}

func (s *postingSink) ScrollToEnd() {
	s.post(func(t *Transcript) { t.ScrollToEnd() })
}

// waitForEvent reads the next message a worker posted. It is re-issued
// after every message of the current generation.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
