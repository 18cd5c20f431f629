package cmd

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/arin/ollama-chat/internal/ai"
	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/config"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/ui"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestAnswerSink_WritesAnswerToOutAndThinkingToDiag(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, diag bytes.Buffer
	s := newAnswerSink(&out, &diag)

	h := s.BeginAssistantMessage("m")
	s.ReplaceThinkingRegion(h, chat.ThinkingLabel+"hmm")
	s.ReplaceThinkingRegion(h, chat.ThinkingLabel+"hmm, ok")
	answer := "Use:\n```sh\nls -la\n```\ndone"
	for i := 1; i <= len(answer); i++ {
		s.ReplaceAnswerRegion(h, chat.SplitCode(answer[:i]))
	}
	s.finish()

	if got := out.String(); got != answer+"\n" {
		t.Errorf("expected raw answer on stdout, got %q", got)
	}
	if got := ansi.ReplaceAllString(diag.String(), ""); got != chat.ThinkingLabel+"hmm, ok\n\n" {
		t.Errorf("expected thinking on stderr, got %q", got)
	}
}

// cannedProvider answers every conversation with the same reply.
type cannedProvider struct {
	reply string
	err   error
}

func (p cannedProvider) Complete(ctx context.Context, model string, messages []ai.Message) (string, error) {
	return p.reply, p.err
}

func newTestLineChat(t *testing.T, p ai.Provider) (*lineChat, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, diag bytes.Buffer
	lc := &lineChat{
		client:  ai.NewClient(p, ""),
		cfg:     &config.Config{Model: "deepseek-r1:14b", Theme: ui.Dark, ShowThinking: true},
		session: chat.NewSession(),
		sink:    ui.NewTerminalSink(&out, ui.Dark),
		out:     &out,
		diag:    &diag,
	}
	return lc, &out, &diag
}

func TestLineChat_AnswerGoesToOut(t *testing.T) {
	lc, out, diag := newTestLineChat(t, cannedProvider{reply: "<think>easy</think>The answer is 42."})

	lc.send(context.Background(), "what is six times seven?")

	if !strings.Contains(out.String(), "The answer is 42.") {
		t.Errorf("expected the answer on stdout, got %q", out.String())
	}
	if strings.Contains(diag.String(), "42") {
		t.Errorf("answer leaked to stderr: %q", diag.String())
	}
	if lc.session.Len() != 2 {
		t.Errorf("expected user and assistant messages, got %d", lc.session.Len())
	}
}

func TestLineChat_ErrorGoesToDiag(t *testing.T) {
	lc, out, diag := newTestLineChat(t, cannedProvider{err: errors.New("model exploded")})

	lc.send(context.Background(), "hi")

	if !strings.Contains(diag.String(), "model exploded") {
		t.Errorf("expected the error on stderr, got %q", diag.String())
	}
	if strings.Contains(out.String(), "model exploded") {
		t.Errorf("error leaked to stdout: %q", out.String())
	}
	if lc.session.Len() != 1 {
		t.Errorf("a failed answer must not enter history, got %d messages", lc.session.Len())
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{4_700_000_000, "4.4 GB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.in); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitialSession(t *testing.T) {
	t.Cleanup(func() { loadPath, resumeID = "", "" })

	t.Run("fresh", func(t *testing.T) {
		loadPath, resumeID = "", ""
		s, note, err := initialSession(nil)
		if err != nil {
			t.Fatal(err)
		}
		if s.Len() != 0 || note != "" {
			t.Errorf("expected empty session, got len=%d note=%q", s.Len(), note)
		}
	})

	t.Run("load file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chat.json")
		msgs := []chat.Message{{Role: chat.RoleUser, Content: "hi"}, {Role: chat.RoleAssistant, Content: "hello"}}
		if err := history.SaveFile(path, msgs); err != nil {
			t.Fatal(err)
		}
		loadPath, resumeID = path, ""
		s, note, err := initialSession(nil)
		if err != nil {
			t.Fatal(err)
		}
		if s.Len() != 2 || note == "" {
			t.Errorf("expected 2 loaded messages and a note, got len=%d note=%q", s.Len(), note)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		loadPath, resumeID = filepath.Join(t.TempDir(), "nope.json"), ""
		if _, _, err := initialSession(nil); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("resume", func(t *testing.T) {
		store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		rec := history.Record{ID: "0f8e2a6c-1111-2222-3333-444455556666", Model: "llama3:8b",
			Messages: []chat.Message{{Role: chat.RoleUser, Content: "resume me"}}}
		if err := store.Put(rec); err != nil {
			t.Fatal(err)
		}

		loadPath, resumeID = "", "0f8e2a6c"
		s, _, err := initialSession(store)
		if err != nil {
			t.Fatal(err)
		}
		if s.ID() != rec.ID || s.Len() != 1 {
			t.Errorf("expected resumed session %s with 1 message, got %s with %d", rec.ID, s.ID(), s.Len())
		}
	})

	t.Run("load and resume conflict", func(t *testing.T) {
		loadPath, resumeID = "a.json", "abc"
		if _, _, err := initialSession(nil); err == nil {
			t.Error("expected an error for --load with --resume")
		}
	})
}
