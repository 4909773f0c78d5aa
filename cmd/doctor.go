package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/gallery-chat/internal/ai"
	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/ui"
)

const doctorTimeout = 30 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and model connectivity",
	Long: `Run a health check on your gallery-chat setup.
Verifies the configuration, the persona, the voice capture command,
and that the configured model answers a streamed request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 gallery doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) bool {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
					return true
				}
				red.Fprintf(os.Stderr, "  ✗ %s\n", name)
				dim.Fprintf(os.Stderr, "    %s\n", err.Error())
				fail++
				return false
			}
			green.Fprintf(os.Stderr, "  ✓ %s", name)
			if detail != "" {
				dim.Fprintf(os.Stderr, " — %s", detail)
			}
			fmt.Fprintln(os.Stderr)
			pass++
			return true
		}

		var cfg *config.Config
		configOK := check("Configuration", func() (string, error) {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model), nil
		})

		check("Config directory", func() (string, error) {
			dir := config.Dir()
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("warn:~/.gallery-chat not found — will be created on first use")
			}
			if !info.IsDir() {
				return "", fmt.Errorf("~/.gallery-chat exists but is not a directory")
			}
			return dir, nil
		})

		if configOK {
			check("API key", func() (string, error) {
				if cfg.Provider == config.ProviderOllama {
					return "not needed for ollama", nil
				}
				if !cfg.Ready() {
					return "", fmt.Errorf("no key — run: gallery config set-key <key>")
				}
				return cfg.MaskedKey(), nil
			})

			check("Persona", func() (string, error) {
				persona, err := ai.LoadSystemInstruction(cfg.PersonaFile)
				if err != nil {
					return "", err
				}
				if cfg.PersonaFile == "" {
					return "built-in", nil
				}
				return fmt.Sprintf("%s (%d chars)", cfg.PersonaFile, len(persona)), nil
			})

			check("Voice capture", func() (string, error) {
				fields := strings.Fields(cfg.CaptureCommand)
				if len(fields) == 0 {
					return "", fmt.Errorf("warn:voice input disabled — run: gallery config set-capture <command>")
				}
				path, err := exec.LookPath(fields[0])
				if err != nil {
					return "", fmt.Errorf("%s not found in PATH", fields[0])
				}
				return path, nil
			})

			check("Model answers", func() (string, error) {
				return probeModel(cmd.Context(), cfg)
			})
		}

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

// probeModel streams a tiny request and reports time to the full answer.
func probeModel(ctx context.Context, cfg *config.Config) (string, error) {
	provider, err := ai.NewProvider(cfg)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	sp := ui.NewSpinner("Contacting " + cfg.Provider + "...")
	sp.Start()
	start := time.Now()

	fragments, err := ai.NewChat(provider, "").Open(ctx, "Reply with the single word: ready")
	if err != nil {
		sp.Stop()
		return "", err
	}
	answer, err := ai.Collect(fragments)
	sp.Stop()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("warn:the model returned an empty answer")
	}
	return fmt.Sprintf("replied in %dms", time.Since(start).Milliseconds()), nil
}
