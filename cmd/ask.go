package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/ui"
)

const maxStdin = 1 << 20

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask a single question and stream the answer to stdout",
	Long: `Ask one question without starting a chat. The answer is written to
stdout as it streams in, so it can be piped. When stdin is piped its content
is appended to the prompt. Thinking goes to stderr unless --no-thinking.

Examples:
  ochat ask "what does the -race flag do?"
  cat main.go | ochat ask "find the bug"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		prompt := strings.Join(args, " ")
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdin))
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			if piped := strings.TrimSpace(string(data)); piped != "" {
				prompt += "\n\n" + piped
			}
		}

		session := chat.NewSession()
		if err := session.Append(chat.RoleUser, prompt); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sink := newAnswerSink(os.Stdout, os.Stderr)
		var sp *ui.Spinner
		if term.IsTerminal(int(os.Stderr.Fd())) {
			sp = ui.NewSpinner("Thinking...")
			sink.spinner = sp
			sp.Start()
		}

		started := time.Now()
		res, err := chat.NewCoordinator(client).Run(ctx, chat.Request{
			Model:        cfg.Model,
			History:      session.Snapshot(),
			WantThinking: cfg.ShowThinking,
		}, sink)
		if sp != nil {
			sp.Stop()
		}
		sink.finish()

		recordStream("ask", session.ID(), cfg.Model, started, res, err)
		if err != nil {
			if isCancel(err) {
				return nil
			}
			return err
		}
		return nil
	},
}

// answerSink writes the raw answer text to out and the thinking text,
// dimmed, to diag. Code blocks are written back with their fences so the
// output is the model's markdown unchanged.
type answerSink struct {
	mu       sync.Mutex
	out      io.Writer
	diag     io.Writer
	dim      *color.Color
	spinner  *ui.Spinner
	thinking string
	answer   string
}

func newAnswerSink(out, diag io.Writer) *answerSink {
	return &answerSink{out: out, diag: diag, dim: color.New(color.FgHiBlack, color.Italic)}
}

func (s *answerSink) ShowSystemNote(string)  {}
func (s *answerSink) ShowUserMessage(string) {}
func (s *answerSink) ScrollToEnd()           {}

func (s *answerSink) BeginAssistantMessage(string) chat.Handle {
	return 1
}

func (s *answerSink) ReplaceThinkingRegion(_ chat.Handle, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpinner()
	if strings.HasPrefix(text, s.thinking) {
		s.dim.Fprint(s.diag, text[len(s.thinking):])
	}
	s.thinking = text
}

func (s *answerSink) ReplaceAnswerRegion(_ chat.Handle, segs []chat.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpinner()
	if s.thinking != "" && s.answer == "" {
		fmt.Fprint(s.diag, "\n\n")
	}
	text := chat.JoinCode(segs)
	if strings.HasPrefix(text, s.answer) {
		fmt.Fprint(s.out, text[len(s.answer):])
	}
	s.answer = text
}

func (s *answerSink) stopSpinner() {
	if s.spinner != nil {
		s.spinner.Stop()
		s.spinner = nil
	}
}

func (s *answerSink) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answer != "" && !strings.HasSuffix(s.answer, "\n") {
		fmt.Fprintln(s.out)
	}
}
