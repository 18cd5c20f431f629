package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/ollama-chat/internal/ai"
	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/config"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a line-mode chat session",
	Long: `Chat in plain scrolling terminal output instead of the full-screen UI.
Answers are printed to stdout as they stream in, so the conversation can be
redirected to a file. Prompts and errors go to stderr. Press ctrl+c to stop
an answer.

Commands: /clear, /save [path], /model [name], /thinking, /theme, /help.
Type 'exit' or 'quit' to end the session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&loadPath, "load", "", "Start from a saved chat file")
	chatCmd.Flags().StringVar(&resumeID, "resume", "", "Resume an archived session by id")
}

// lineChat is the state of a line-mode session. The conversation is
// printed to out; prompts, the spinner and errors go to diag.
type lineChat struct {
	client  *ai.Client
	cfg     *config.Config
	session *chat.Session
	store   *history.Store
	sink    *ui.TerminalSink
	out     io.Writer
	diag    io.Writer
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	store, err := history.Open(history.DefaultPath())
	if err != nil {
		slog.Warn("archive unavailable, chats will not be autosaved", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	session, note, err := initialSession(store)
	if err != nil {
		return err
	}

	lc := &lineChat{
		client:  client,
		cfg:     cfg,
		session: session,
		store:   store,
		sink:    ui.NewTerminalSink(os.Stdout, cfg.Theme),
		out:     os.Stdout,
		diag:    os.Stderr,
	}

	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	fmt.Fprintln(os.Stderr)
	cyan.Fprintln(os.Stderr, "  ochat")
	dim.Fprintf(os.Stderr, "  Chatting with %s. Type /help for commands, 'exit' to quit.\n", cfg.Model)
	if note != "" {
		lc.sink.ShowSystemNote(note)
		session.Rebuild(lc.sink, cfg.Model)
		lc.sink.Flush()
	}
	fmt.Fprintln(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		green.Fprint(os.Stderr, "  you → ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "bye" || input == "/quit" || input == "/exit" {
			dim.Fprintf(os.Stderr, "\n  Later! 👋\n\n")
			break
		}
		if strings.HasPrefix(input, "/") {
			lc.command(input)
			continue
		}

		lc.send(cmd.Context(), input)
	}

	return scanner.Err()
}

// send streams one answer. ctrl+c cancels the answer, not the session.
func (lc *lineChat) send(parent context.Context, text string) {
	if err := lc.session.Append(chat.RoleUser, text); err != nil {
		lc.sink.ShowSystemNote(err.Error())
		return
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	sp := ui.NewSpinnerTo(lc.diag, "Thinking...")
	lc.sink.WaitWith(sp)
	sp.Start()

	started := time.Now()
	res, err := chat.NewCoordinator(lc.client).Run(ctx, chat.Request{
		Model:        lc.cfg.Model,
		History:      lc.session.Snapshot(),
		WantThinking: lc.cfg.ShowThinking,
	}, lc.sink)
	sp.Stop()
	lc.sink.Flush()

	recordStream("chat", lc.session.ID(), lc.cfg.Model, started, res, err)

	switch {
	case isCancel(err):
		lc.sink.ShowSystemNote("Response stopped.")
	case err != nil:
		var be *chat.BackendError
		if errors.As(err, &be) {
			err = be.Err
		}
		color.New(color.FgRed).Fprintf(lc.diag, "  Error: %v\n", err)
	default:
		if err := lc.session.Append(chat.RoleAssistant, res.Answer); err != nil {
			lc.sink.ShowSystemNote(err.Error())
		}
		archive(lc.store, lc.session, lc.cfg.Model)
	}
	fmt.Fprintln(lc.out)
}

func (lc *lineChat) command(line string) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/clear":
		lc.session.Clear()
		lc.sink.ShowSystemNote("Chat cleared")
		lc.sink.ShowSystemNote("Using model " + lc.cfg.Model)

	case "/save":
		msgs := lc.session.Snapshot()
		path := strings.Join(args, " ")
		var err error
		if path == "" {
			path, err = history.SaveNew(lc.cfg.SaveDir, msgs, time.Now())
		} else {
			err = history.SaveFile(path, msgs)
		}
		if err != nil {
			lc.sink.ShowSystemNote("Save failed: " + err.Error())
			return
		}
		lc.sink.ShowSystemNote("Chat saved to " + path)

	case "/model":
		if len(args) == 0 {
			lc.sink.ShowSystemNote("Model: " + lc.cfg.Model + " (available: " + strings.Join(lc.cfg.PickerModels(), ", ") + ")")
			return
		}
		lc.cfg.Model = args[0]
		if !slices.Contains(lc.cfg.Models, args[0]) {
			lc.cfg.Models = append(lc.cfg.Models, args[0])
		}
		lc.sink.ShowSystemNote("Model: " + args[0])

	case "/thinking":
		lc.cfg.ShowThinking = !lc.cfg.ShowThinking
		if lc.cfg.ShowThinking {
			lc.sink.ShowSystemNote("Thinking is now shown.")
		} else {
			lc.sink.ShowSystemNote("Thinking is now hidden.")
		}

	case "/theme":
		theme := ui.Toggle(lc.cfg.Theme)
		if len(args) > 0 {
			theme = ui.PaletteFor(args[0]).Name
		}
		lc.cfg.Theme = theme
		lc.sink.SetTheme(theme)
		lc.sink.ShowSystemNote("Theme: " + theme)

	case "/history":
		lc.session.Rebuild(lc.sink, lc.cfg.Model)
		lc.sink.Flush()

	case "/help":
		lc.sink.ShowSystemNote("/clear            clear the chat")
		lc.sink.ShowSystemNote("/save [path]      save the chat to a JSON file")
		lc.sink.ShowSystemNote("/model [name]     show or switch the model")
		lc.sink.ShowSystemNote("/thinking         show or hide thinking")
		lc.sink.ShowSystemNote("/theme [name]     toggle or set the code colour theme")
		lc.sink.ShowSystemNote("/history          reprint the conversation")
		lc.sink.ShowSystemNote("exit              quit")

	default:
		lc.sink.ShowSystemNote("Unknown command " + name + ". Type /help for the list.")
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled)
}
