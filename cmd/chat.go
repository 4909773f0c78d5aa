package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/conversation"
	"github.com/arin/gallery-chat/internal/logging"
	"github.com/arin/gallery-chat/internal/tui"
	"github.com/arin/gallery-chat/internal/ui"
)

const logFileName = "gallery.log"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the gallery guide",
	Long: `Start a conversation with the gallery guide. Answers stream in as they
are written, and earlier questions carry over within the session.

In a terminal the chat opens full-screen; use --plain for a line-based chat.
Type /voice to dictate a question (needs: gallery config set-capture).
Type 'exit' or 'quit' to end the session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&plainMode, "plain", false, "Use the line-based chat even in a terminal")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	newSource, err := sourceFactory(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !plainMode && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return runTUI(ctx, cfg, newSource())
	}
	return runPlainChat(ctx, cfg, newSource(), newLogger(cfg))
}

// runTUI logs to a file under the config dir; stderr belongs to the screen.
func runTUI(ctx context.Context, cfg *config.Config, source chat.Source) error {
	var w io.Writer = io.Discard
	if err := os.MkdirAll(config.Dir(), 0o700); err == nil {
		f, err := os.OpenFile(filepath.Join(config.Dir(), logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			defer f.Close()
			w = f
		}
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(level, w)

	bridge := tui.NewBridge()
	session := chat.NewSession(source, chat.Options{
		Capturer: newCapturer(cfg),
		OnChange: bridge.OnChange,
		OnTurn:   recordTurn("chat", cfg, logger),
		Logger:   &logger,
	})
	defer session.Dispose()

	return tui.Run(ctx, session, bridge, modelName(cfg))
}

func runPlainChat(ctx context.Context, cfg *config.Config, source chat.Source, logger zerolog.Logger) error {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	var opts []ui.TranscriptOption
	opts = append(opts, ui.WithPrefix("  guide → "))
	if term.IsTerminal(int(os.Stderr.Fd())) {
		opts = append(opts, ui.WithThinking(ui.NewSpinner("Thinking...")))
	}
	transcript := ui.NewTranscript(os.Stdout, opts...)

	var session *chat.Session
	session = chat.NewSession(source, chat.Options{
		Capturer: newCapturer(cfg),
		OnChange: func(msgs []conversation.Message) { transcript.Render(msgs, session.Busy()) },
		OnTurn:   recordTurn("chat", cfg, logger),
		Logger:   &logger,
	})
	defer session.Dispose()

	fmt.Fprintln(os.Stderr)
	cyan.Fprintln(os.Stderr, "  Gallery AI Assistant")
	dim.Fprintf(os.Stderr, "  Type 'exit' to quit")
	if session.CanCapture() {
		dim.Fprintf(os.Stderr, ", '/voice' to dictate")
	}
	dim.Fprintf(os.Stderr, ".\n\n")

	transcript.Render(session.Snapshot(), false)
	transcript.End()
	fmt.Fprintln(os.Stdout)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	readLine := func() (string, bool) {
		select {
		case line, ok := <-lines:
			return line, ok
		case <-ctx.Done():
			return "", false
		}
	}

	for {
		green.Fprint(os.Stderr, "  you → ")
		line, ok := readLine()
		if !ok {
			fmt.Fprintln(os.Stderr)
			return nil
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			dim.Fprintf(os.Stderr, "\n  Enjoy the gallery!\n\n")
			return nil
		case "/voice":
			text, err := dictate(ctx, session, readLine)
			if err != nil {
				red.Fprintf(os.Stderr, "  Error: %v\n\n", err)
				continue
			}
			if text == "" {
				dim.Fprintf(os.Stderr, "  Nothing was heard.\n\n")
				continue
			}
			green.Fprint(os.Stderr, "  you → ")
			fmt.Fprintln(os.Stderr, text)
			input = text
		}

		_, err := session.Submit(ctx, input)
		transcript.End()
		if err != nil {
			if errors.Is(err, chat.ErrNotReady) {
				red.Fprintf(os.Stderr, "  %v — run: gallery config set-key <key>\n\n", err)
				continue
			}
			red.Fprintf(os.Stderr, "  Error: %v\n\n", err)
			continue
		}
		fmt.Fprintln(os.Stdout)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// dictate records until the user presses Enter and returns the transcript.
func dictate(ctx context.Context, session *chat.Session, readLine func() (string, bool)) (string, error) {
	if err := session.ToggleCapture(ctx); err != nil {
		return "", err
	}
	dim := color.New(color.FgHiBlack)
	dim.Fprintf(os.Stderr, "  Listening... press Enter to stop.\n")

	readLine()
	if session.Recording() {
		if err := session.ToggleCapture(ctx); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(session.Draft()), nil
}
