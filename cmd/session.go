package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arin/ollama-chat/internal/ai"
	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/config"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/stats"
)

// loadConfig reads the config and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagTheme != "" {
		cfg.Theme = flagTheme
	}
	if noThinking {
		cfg.ShowThinking = false
	}
	return cfg, nil
}

func newProvider(cfg *config.Config) (*ai.OllamaProvider, error) {
	p, err := ai.NewOllamaProvider(cfg.Host, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return p, nil
}

func newClient(cfg *config.Config) (*ai.Client, error) {
	p, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return ai.NewClient(p, cfg.SystemPrompt), nil
}

// initialSession builds the session to start from: a saved file (--load),
// an archived session (--resume) or a fresh one. The note describes where
// it came from.
func initialSession(store *history.Store) (*chat.Session, string, error) {
	session := chat.NewSession()

	switch {
	case loadPath != "" && resumeID != "":
		return nil, "", errors.New("--load and --resume cannot be used together")

	case loadPath != "":
		msgs, err := history.LoadFile(loadPath)
		if err != nil {
			return nil, "", err
		}
		if err := session.Restore(session.ID(), msgs); err != nil {
			return nil, "", fmt.Errorf("invalid chat file %s: %w", loadPath, err)
		}
		return session, fmt.Sprintf("Loaded %d messages from %s", len(msgs), loadPath), nil

	case resumeID != "":
		if store == nil {
			return nil, "", errors.New("cannot resume: the archive is unavailable")
		}
		rec, err := store.Get(resumeID)
		if err != nil {
			return nil, "", err
		}
		if err := session.Restore(rec.ID, rec.Messages); err != nil {
			return nil, "", fmt.Errorf("archived session %s is corrupt: %w", rec.ID, err)
		}
		return session, fmt.Sprintf("Resumed %q (%d messages)", rec.Title, len(rec.Messages)), nil
	}
	return session, "", nil
}

// recordStream writes the stats record for one stream. Failures are only
// logged: stats never get in the way of chatting.
func recordStream(frontend, sessionID, model string, started time.Time, res *chat.Result, err error) {
	r := stats.Record{
		Timestamp: started,
		SessionID: sessionID,
		Model:     model,
		Frontend:  frontend,
		Elapsed:   time.Since(started),
	}
	var be *chat.BackendError
	switch {
	case err == nil:
		r.Success = true
		r.FirstChunk = res.FirstChunk
		r.Elapsed = res.Elapsed
		r.Chunks = res.Chunks
		r.Skipped = res.Skipped
		r.AnswerChars = len(res.Answer)
		r.Thinking = res.SawThinking
	case errors.As(err, &be):
		r.Cancelled = isCancel(err)
		r.AnswerChars = len(be.Partial.Answer)
		r.Thinking = be.Partial.Thinking != ""
	}
	if err := stats.Save(r); err != nil {
		slog.Warn("could not record stats", "error", err)
	}
}

// archive stores the session in the archive when one is open.
func archive(store *history.Store, session *chat.Session, model string) {
	if store == nil || session.Len() == 0 {
		return
	}
	err := store.Put(history.Record{ID: session.ID(), Model: model, Messages: session.Snapshot()})
	if err != nil {
		slog.Warn("archive failed", "session", session.ID(), "error", err)
	}
}
