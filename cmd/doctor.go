package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arin/ollama-chat/internal/ai"
	"github.com/arin/ollama-chat/internal/config"
	"github.com/arin/ollama-chat/internal/history"
)

var errWarn = errors.New("warn")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system health and configuration",
	Long: `Run a health check on your ochat setup.
Verifies the config file, the config directory, the Ollama server, its
version, the configured model and the session archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 ochat doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			switch {
			case errors.Is(err, errWarn):
				yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
				dim.Fprintf(os.Stderr, "    %s\n", strings.TrimSuffix(err.Error(), ": "+errWarn.Error()))
				warn++
			case err != nil:
				red.Fprintf(os.Stderr, "  ✗ %s\n", name)
				dim.Fprintf(os.Stderr, "    %s\n", err.Error())
				fail++
			default:
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " · %s", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		// 1. Config file
		cfg, cfgErr := loadConfig()
		check("Config file", func() (string, error) {
			if cfgErr != nil {
				return "", cfgErr
			}
			if _, err := os.Stat(config.Path()); err != nil {
				return "", fmt.Errorf("%s not found, using defaults: %w", config.Path(), errWarn)
			}
			return config.Path(), nil
		})
		if cfgErr != nil {
			fmt.Fprintln(os.Stderr)
			return nil
		}

		// 2. Config directory
		check("Config directory writable", func() (string, error) {
			dir := config.Dir()
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return "", err
			}
			probe := filepath.Join(dir, ".doctor")
			if err := os.WriteFile(probe, nil, 0o600); err != nil {
				return "", err
			}
			os.Remove(probe)
			return dir, nil
		})

		provider, err := newProvider(cfg)
		if err != nil {
			check("Ollama host", func() (string, error) { return "", err })
			fmt.Fprintln(os.Stderr)
			return nil
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		// 3. Server reachable
		reachable := false
		check("Ollama server reachable", func() (string, error) {
			if err := provider.Heartbeat(ctx); err != nil {
				return "", err
			}
			reachable = true
			return provider.Host(), nil
		})

		if reachable {
			// 4. Version
			check("Ollama version", func() (string, error) {
				return provider.Version(ctx)
			})

			// 5. Model pulled
			check(fmt.Sprintf("Model available (%s)", cfg.Model), func() (string, error) {
				models, err := provider.ListModels(ctx)
				if err != nil {
					return "", err
				}
				names := make([]string, len(models))
				for i, m := range models {
					names[i] = m.Name
				}
				if slices.Contains(names, cfg.Model) || slices.Contains(names, cfg.Model+":latest") {
					return "ready", nil
				}
				return "", fmt.Errorf("%w: run: ollama pull %s", ai.ErrModelNotFound, cfg.Model)
			})
		}

		// 6. Archive
		check("Session archive", func() (string, error) {
			store, err := history.Open(history.DefaultPath())
			if err != nil {
				return "", fmt.Errorf("%v (is another ochat running?): %w", err, errWarn)
			}
			defer store.Close()
			recs, err := store.List(0)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d sessions", len(recs)), nil
		})

		// 7. Terminal
		check("Terminal", func() (string, error) {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return "", fmt.Errorf("stdout is not a terminal, ochat will use line mode: %w", errWarn)
			}
			w, h, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				return "full-screen", nil
			}
			return fmt.Sprintf("full-screen, %dx%d", w, h), nil
		})

		// 8. OS and arch
		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		// Summary
		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}
