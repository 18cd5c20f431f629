package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/ui"
)

func TestPostingSink_TagsGeneration(t *testing.T) {
	tr := NewTranscript(ui.NewStyles(ui.Dark), nil)
	ch := make(chan tea.Msg, 8)
	s := &postingSink{ctx: context.Background(), gen: 7, out: ch, handles: tr.NewHandle}

	h := s.BeginAssistantMessage("llama3:8b")
	s.ReplaceAnswerRegion(h, chat.SplitCode("hello"))
	close(ch)

	for msg := range ch {
		sm, ok := msg.(sinkMsg)
		require.True(t, ok)
		assert.Equal(t, uint64(7), sm.gen)
		sm.apply(tr)
	}
	assert.Equal(t, 1, tr.Len())
	assert.Contains(t, tr.Render(80), "hello")
}

func TestPostingSink_DoesNotBlockAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &postingSink{ctx: ctx, out: make(chan tea.Msg), handles: func() chat.Handle { return 1 }}
	cancel()

	done := make(chan struct{})
	go func() {
		s.ShowSystemNote("nobody listens")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("post blocked on a cancelled stream")
	}
}

func TestWaitForEvent_ClosedChannel(t *testing.T) {
	ch := make(chan tea.Msg)
	close(ch)
	assert.Nil(t, waitForEvent(ch)())
}

func TestTranscript_ResetDropsOpenHandles(t *testing.T) {
	tr := NewTranscript(ui.NewStyles(ui.Dark), nil)
	h := tr.BeginAssistantMessage("m")
	tr.Reset()
	tr.ReplaceAnswerRegion(h, chat.SplitCode("late"))

	assert.Zero(t, tr.Len())
	assert.True(t, tr.TakeScroll())
	assert.False(t, tr.TakeScroll())
}
