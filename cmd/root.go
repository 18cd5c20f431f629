package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arin/ollama-chat/internal/config"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/tui"
)

var (
	verbose    bool
	logFile    string
	flagModel  string
	flagTheme  string
	noThinking bool
	loadPath   string
	resumeID   string
)

var rootCmd = &cobra.Command{
	Use:   "ochat",
	Short: "Chat with local Ollama models in your terminal",
	Long: `ochat is a chat client for models running in a local Ollama server.
Answers stream in as they are generated. Reasoning models that think inside
<think>...</think> tags get their thinking shown apart from the answer, and
code blocks are highlighted.

Run without arguments for the full-screen chat. When stdout is not a
terminal the plain line-mode chat is used instead.

Examples:
  ochat
  ochat --model llama3:8b --no-thinking
  ochat --load ollama_chat_20240301-120000.json
  ochat ask "explain goroutines in one paragraph"
  git diff | ochat ask "review this change"`,
	RunE:                       runRoot,
	PersistentPreRun:           func(cmd *cobra.Command, args []string) { setupLogging(os.Stderr) },
	SilenceUsage:               true,
	SilenceErrors:              true,
	TraverseChildren:           true,
	SuggestionsMinimumDistance: 1,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug detail")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Where the full-screen chat writes its log (default ~/.ochat/ochat.log)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model to chat with (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noThinking, "no-thinking", false, "Hide the model's thinking")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "Colour theme: dark or light")

	rootCmd.Flags().StringVar(&loadPath, "load", "", "Start from a saved chat file")
	rootCmd.Flags().StringVar(&resumeID, "resume", "", "Resume an archived session by id (see: ochat history)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

// SetVersion sets the version printed by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(w io.Writer) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func runRoot(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return runChat(cmd, args)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	// The full-screen UI owns the terminal, so logs go to a file.
	path := logFile
	if path == "" {
		path = filepath.Join(config.Dir(), "ochat.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	setupLogging(f)

	var notes []string
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		slog.Warn("archive unavailable", "error", err)
		notes = append(notes, "Archive unavailable, chats will not be autosaved: "+err.Error())
		store = nil
	} else {
		defer store.Close()
	}

	session, note, err := initialSession(store)
	if err != nil {
		return err
	}
	if note != "" {
		notes = append(notes, note)
	}

	var copyText func(string) error
	if !clipboard.Unsupported {
		copyText = clipboard.WriteAll
	}

	return tui.Run(cmd.Context(), tui.Options{
		Backend:      client,
		Session:      session,
		Store:        store,
		Model:        cfg.Model,
		Models:       cfg.PickerModels(),
		Theme:        cfg.Theme,
		ShowThinking: cfg.ShowThinking,
		SaveDir:      cfg.SaveDir,
		RecordStats:  true,
		CopyText:     copyText,
		Notes:        notes,
	})
}
