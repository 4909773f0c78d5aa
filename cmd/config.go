package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arin/gallery-chat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gallery-chat configuration",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Set your Gemini API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetAPIKey(args[0]); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
		fmt.Println("API key saved successfully.")
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model <model-name>",
	Short: "Set the model (default: gemini-2.5-flash, or llama3.2:latest for ollama)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetModel(args[0]); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		fmt.Printf("Model set to %s.\n", args[0])
		return nil
	},
}

var setProviderCmd = &cobra.Command{
	Use:       "set-provider <gemini|ollama>",
	Short:     "Choose the model provider",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{config.ProviderGemini, config.ProviderOllama},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetProvider(args[0]); err != nil {
			return fmt.Errorf("failed to save provider: %w", err)
		}
		fmt.Printf("Provider set to %s.\n", args[0])
		return nil
	},
}

var setCaptureCmd = &cobra.Command{
	Use:   "set-capture <command>",
	Short: "Set the speech-to-text command used for voice input",
	Long: `Set the command that captures speech. It must print the recognised text
to stdout, one segment per line, until it is stopped. Pass "" to disable
voice input.

Example:
  gallery config set-capture "whisper-stream --stdout"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetCaptureCommand(args[0]); err != nil {
			return fmt.Errorf("failed to save capture command: %w", err)
		}
		if args[0] == "" {
			fmt.Println("Voice input disabled.")
			return nil
		}
		fmt.Println("Capture command saved.")
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		capture := cfg.CaptureCommand
		if capture == "" {
			capture = "(voice input disabled)"
		}
		fmt.Printf("Provider:   %s\n", cfg.Provider)
		fmt.Printf("Model:      %s\n", cfg.Model)
		fmt.Printf("API Key:    %s\n", cfg.MaskedKey())
		fmt.Printf("Capture:    %s\n", capture)
		fmt.Printf("Listen:     %s\n", cfg.ListenAddr)
		fmt.Printf("Log Level:  %s\n", cfg.LogLevel)
		fmt.Printf("Config Dir: %s\n", config.Dir())
		return nil
	},
}

func init() {
	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setProviderCmd)
	configCmd.AddCommand(setCaptureCmd)
	configCmd.AddCommand(showCmd)
}
