package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/history"
	"github.com/arin/ollama-chat/internal/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived chat sessions",
	Long: `Every completed answer autosaves its session to ~/.ochat/history.db.
List them here, print one with 'history show', write one to a chat file
with 'history export', or reopen one with 'ochat --resume <id>'.
Ids may be shortened to any unique prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(history.DefaultPath())
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List(historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		cyan := color.New(color.FgCyan)
		dim := color.New(color.FgHiBlack)

		for _, r := range records {
			dim.Printf("[%s] ", r.UpdatedAt.Format("2006-01-02 15:04"))
			cyan.Printf("%s ", shortID(r.ID))
			fmt.Printf("%s ", r.Title)
			dim.Printf("(%s, %d messages)\n", r.Model, len(r.Messages))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := getRecord(args[0])
		if err != nil {
			return err
		}
		session := chat.NewSession()
		if err := session.Restore(rec.ID, rec.Messages); err != nil {
			return fmt.Errorf("archived session %s is corrupt: %w", rec.ID, err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sink := ui.NewTerminalSink(os.Stdout, cfg.Theme)
		sink.ShowSystemNote(fmt.Sprintf("%s · %s · %s", rec.Title, rec.Model, rec.CreatedAt.Format("2006-01-02 15:04")))
		session.Rebuild(sink, rec.Model)
		sink.Flush()
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id> <file>",
	Short: "Write an archived session to a chat file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := getRecord(args[0])
		if err != nil {
			return err
		}
		if err := history.SaveFile(args[1], rec.Messages); err != nil {
			return err
		}
		fmt.Printf("Exported %d messages to %s.\n", len(rec.Messages), args[1])
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(history.DefaultPath())
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(rec.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted %s.\n", rec.ID)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func getRecord(id string) (history.Record, error) {
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		return history.Record{}, err
	}
	defer store.Close()
	return store.Get(id)
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}
