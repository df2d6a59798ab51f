package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	imageassistant "github.com/menta2k/image-assistant"
	"github.com/menta2k/image-assistant/internal/config"
	"github.com/menta2k/image-assistant/internal/logging"
	"github.com/menta2k/image-assistant/pkg/types"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	backend string
	model   string

	// Set up by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// requestHandler is what the commands need from the assistant
type requestHandler interface {
	Handle(ctx context.Context, imagePath, prompt string) types.AssistantResponse
	DetectRegions(ctx context.Context, imagePath, prompt string) ([]types.Region, error)
}

// newHandler builds the assistant; tests replace it
var newHandler = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (requestHandler, error) {
	a, err := imageassistant.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "image-assistant",
	Short: "Conversational image editing assistant",
	Long: `image-assistant turns free-text requests into image edits.

Run without arguments to start the interactive chat:
  load <path>   load an image
  clear         forget the loaded image
  quit | bye    exit

Anything else is sent to the assistant together with the loaded image.`,
	Version:           imageassistant.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newHandler(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), h)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "model backend: gemini, ollama or llamacpp")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model name")

	rootCmd.AddCommand(askCmd, batchCmd, detectCmd)
}

// setup loads the configuration, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.GetConfigPath()
	}
	loaded, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	if backend != "" {
		loaded.Model.Backend = backend
	}
	if model != "" {
		loaded.Model.Name = model
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logging.New(loaded.Logging, verbose)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	logger.Debug("configuration loaded", zap.String("path", path), zap.String("backend", cfg.Model.Backend))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
