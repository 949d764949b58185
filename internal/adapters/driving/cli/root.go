// Package cli provides the vigil command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil/internal/adapters/driven/ai"
	"github.com/custodia-labs/vigil/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vigil/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
	"github.com/custodia-labs/vigil/internal/core/services"
	"github.com/custodia-labs/vigil/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Services used by commands. They are created on first use, or injected
// by tests.
var (
	settingsService  driving.SettingsService
	analysisService  driving.AnalysisService
	knowledgeService driving.KnowledgeBaseService

	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Guidance-driven security analysis for source code",
	Long: `Vigil splits Python and JavaScript files into functions, classes and
global blocks, retrieves the most relevant security guidance for each one
and asks a language model to grade it.

Configure providers in ~/.vigil/config.toml or with 'vigil settings', build
the knowledge base with 'vigil kb rebuild', then run 'vigil analyze'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.vigil)")
}

// Execute runs the root command and releases every service it opened.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

func shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
	closers = nil
}

// loadSettings returns the settings service, opening the config file on
// first use.
func loadSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return settingsService, nil
}

// openKnowledge wires the guidance index with the embedding provider and
// the persisted generation. No LLM is needed.
func openKnowledge(ctx context.Context) (driving.KnowledgeBaseService, error) {
	if knowledgeService != nil {
		return knowledgeService, nil
	}
	settings, err := currentSettings()
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: configure [embedding] in the config file or run 'vigil settings embedding'",
			domain.ErrEmbeddingUnavailable)
	}
	closers = append(closers, embedder.Close)

	index, err := openIndex(ctx, settings, embedder)
	if err != nil {
		return nil, err
	}
	knowledgeService = services.NewKnowledgeService(index)
	return knowledgeService, nil
}

// openAnalysis wires the full pipeline: both providers, the guidance index
// and the prompt templates.
func openAnalysis(ctx context.Context) (driving.AnalysisService, driving.KnowledgeBaseService, error) {
	if analysisService != nil && knowledgeService != nil {
		return analysisService, knowledgeService, nil
	}
	settings, err := currentSettings()
	if err != nil {
		return nil, nil, err
	}

	providers, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, providers.Close)

	index, err := openIndex(ctx, settings, providers.EmbeddingService)
	if err != nil {
		return nil, nil, err
	}

	prompts, err := file.NewPromptStore(promptDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open prompts: %w", err)
	}

	svc := services.NewAnalysisService(index, providers.LLMService, prompts, settings.Analysis)
	analysisService, knowledgeService = svc, svc
	return analysisService, knowledgeService, nil
}

func openIndex(ctx context.Context, settings *domain.AppSettings, embedder driven.EmbeddingService) (*services.GuidanceIndex, error) {
	store, err := sqlite.NewStore(dataDir(settings))
	if err != nil {
		return nil, fmt.Errorf("open guidance store: %w", err)
	}
	closers = append(closers, store.Close)

	index := services.NewGuidanceIndex(embedder, store.GuidanceStore())
	if err := index.Load(ctx); err != nil {
		return nil, fmt.Errorf("load guidance: %w", err)
	}
	logger.Debug("guidance generation %d loaded from %s", index.Generation(), store.Path())
	return index, nil
}

func currentSettings() (*domain.AppSettings, error) {
	svc, err := loadSettings()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// dataDir keeps the database next to an explicit --config-dir.
func dataDir(settings *domain.AppSettings) string {
	if settings.Knowledge.DataDir != "" {
		return settings.Knowledge.DataDir
	}
	if configDir != "" {
		return filepath.Join(configDir, "data")
	}
	return ""
}

func promptDir() string {
	if configDir != "" {
		return filepath.Join(configDir, "prompts")
	}
	return ""
}

// errAlert is returned when a report reaches the --fail-on threshold.
var errAlert = errors.New("alert threshold reached")
