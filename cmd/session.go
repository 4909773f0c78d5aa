package cmd

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/arin/gallery-chat/internal/ai"
	"github.com/arin/gallery-chat/internal/capture"
	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/stats"
)

// sourceFactory returns a constructor for per-conversation completion
// sources. Without an API key the constructor returns nil, which opens
// each conversation with the setup notice instead of failing here.
func sourceFactory(cfg *config.Config) (func() chat.Source, error) {
	provider, err := ai.NewProvider(cfg)
	if errors.Is(err, ai.ErrNoAPIKey) {
		return func() chat.Source { return nil }, nil
	}
	if err != nil {
		return nil, err
	}

	persona, err := ai.LoadSystemInstruction(cfg.PersonaFile)
	if err != nil {
		return nil, err
	}
	return func() chat.Source { return ai.NewChat(provider, persona) }, nil
}

func newCapturer(cfg *config.Config) capture.Capturer {
	if cfg.CaptureCommand == "" {
		return nil
	}
	return capture.NewCommandCapturer(cfg.CaptureCommand)
}

// recordTurn stores usage metrics for every finished turn.
func recordTurn(surface string, cfg *config.Config, logger zerolog.Logger) func(chat.TurnReport) {
	return func(r chat.TurnReport) {
		if r.Outcome == chat.OutcomeNone {
			return
		}
		if err := stats.Save(stats.FromTurn(r, surface, cfg)); err != nil {
			logger.Warn().Err(err).Msg("failed to save stats")
		}
	}
}

func modelName(cfg *config.Config) string {
	return cfg.Provider + "/" + cfg.Model
}
