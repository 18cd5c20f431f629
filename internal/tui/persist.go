package tui

import (
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/stats"
)

const frontend = "tui"

// persistedMsg reports the outcome of archiving a finished exchange.
type persistedMsg struct {
	err error
}

// persist writes the archive record and the stats record off the event
// loop. Either may be nil.
func (m *Model) persist(rec *history.Record, sr *stats.Record) tea.Cmd {
	store := m.opts.Store
	if rec == nil && sr == nil {
		return nil
	}
	return func() tea.Msg {
		if sr != nil {
			if err := stats.Save(*sr); err != nil {
				slog.Warn("could not record stats", "error", err)
			}
		}
		if rec != nil && store != nil {
			if err := store.Put(*rec); err != nil {
				return persistedMsg{err: errors.Join(errors.New("archive failed"), err)}
			}
		}
		return persistedMsg{}
	}
}

func (m *Model) archiveRecord() *history.Record {
	if m.opts.Store == nil || m.session.Len() == 0 {
		return nil
	}
	return &history.Record{
		ID:       m.session.ID(),
		Model:    m.model,
		Messages: m.session.Snapshot(),
	}
}

func statsSuccess(m *Model, res *chat.Result) *stats.Record {
	if !m.opts.RecordStats {
		return nil
	}
	return &stats.Record{
		Timestamp:   m.started,
		SessionID:   m.session.ID(),
		Model:       m.model,
		FirstChunk:  res.FirstChunk,
		Elapsed:     res.Elapsed,
		Chunks:      res.Chunks,
		Skipped:     res.Skipped,
		AnswerChars: len(res.Answer),
		Thinking:    res.SawThinking,
		Success:     true,
		Frontend:    frontend,
	}
}

func statsFailure(m *Model, err error) *stats.Record {
	if !m.opts.RecordStats {
		return nil
	}
	r := &stats.Record{
		Timestamp: m.started,
		SessionID: m.session.ID(),
		Model:     m.model,
		Elapsed:   m.opts.Now().Sub(m.started),
		Frontend:  frontend,
	}
	var be *chat.BackendError
	if errors.As(err, &be) {
		r.AnswerChars = len(be.Partial.Answer)
		r.Thinking = be.Partial.Thinking != ""
	}
	return r
}

// recordCancelled notes a stream the user stopped. It runs outside the
// event loop because stopStream has no command to return.
func (m *Model) recordCancelled() {
	if !m.opts.RecordStats {
		return
	}
	r := stats.Record{
		Timestamp: m.started,
		SessionID: m.session.ID(),
		Model:     m.model,
		Elapsed:   m.opts.Now().Sub(m.started),
		Cancelled: true,
		Frontend:  frontend,
	}
	go func() {
		if err := stats.Save(r); err != nil {
			slog.Warn("could not record stats", "error", err)
		}
	}()
}
