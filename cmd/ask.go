package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/conversation"
	"github.com/arin/gallery-chat/internal/ui"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the gallery guide a single question",
	Long: `Ask one question and stream the answer to stdout.

Examples:
  gallery ask what are the opening hours
  gallery ask "who made you?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		logger := newLogger(cfg)

		newSource, err := sourceFactory(cfg)
		if err != nil {
			return err
		}

		var opts []ui.TranscriptOption
		if term.IsTerminal(int(os.Stderr.Fd())) {
			opts = append(opts, ui.WithThinking(ui.NewSpinner("Thinking...")))
		}
		transcript := ui.NewTranscript(os.Stdout, opts...)

		saveTurn := recordTurn("ask", cfg, logger)
		var report chat.TurnReport
		var session *chat.Session
		session = chat.NewSession(newSource(), chat.Options{
			// The greeting is skipped; only the answer is printed.
			OnChange: func(msgs []conversation.Message) { transcript.Render(msgs[1:], session.Busy()) },
			OnTurn: func(r chat.TurnReport) {
				report = r
				saveTurn(r)
			},
			Logger: &logger,
		})
		defer session.Dispose()

		_, err = session.Submit(cmd.Context(), strings.Join(args, " "))
		transcript.End()
		if errors.Is(err, chat.ErrNotReady) {
			return fmt.Errorf("%w — run: gallery config set-key <key>", err)
		}
		if err != nil {
			return err
		}

		switch report.Outcome {
		case chat.OutcomeFailed:
			return report.Err
		case chat.OutcomeCanceled:
			return fmt.Errorf("interrupted")
		}
		return nil
	},
}
