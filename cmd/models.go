package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed in the local Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}

		models, err := provider.ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  Models on %s\n\n", provider.Host())
		if len(models) == 0 {
			dim.Fprintln(os.Stderr, "  None installed. Try: ollama pull llama3:8b")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		picker := cfg.PickerModels()
		for _, m := range models {
			if m.Name == cfg.Model {
				green.Printf("  * %-28s", m.Name)
			} else {
				fmt.Printf("    %-28s", m.Name)
			}
			dim.Printf(" %-8s %-8s %s", m.ParameterSize, m.Quantization, humanSize(m.Size))
			if slices.Contains(picker, m.Name) {
				dim.Print("  (in picker)")
			}
			fmt.Println()
		}
		fmt.Println()
		return nil
	},
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
