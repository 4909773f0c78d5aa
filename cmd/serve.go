package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat widget over HTTP and WebSocket",
	Long: `Serve the chat widget page at / and its WebSocket endpoint at /ws.
Every browser tab gets its own conversation, which ends when the tab closes.
GET /healthz reports liveness.`,
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
		if !cfg.Ready() {
			logger.Warn().Msg("no API key configured; visitors will see the setup notice")
		}

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := server.New(server.Options{
			NewSource: newSource,
			OnTurn:    recordTurn("serve", cfg, logger),
			Logger:    logger,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(addr)
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("widget server failed: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		logger.Info().Msg("shutting down widget server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}
