// Package pipeline assembles a decision engine from configuration. It loads
// the prompt library and safety pattern catalog, builds the drafting and
// safety model providers, and binds them to an accuracy tracker.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/llm"
	"github.com/JaimeStill/arbiter/internal/prompts"
	"github.com/JaimeStill/arbiter/internal/safety"
)

// New builds an engine whose drafting and safety layers call the configured
// model providers.
func New(cfg *config.Config, tracker *accuracy.Tracker, logger *slog.Logger, opts ...engine.Option) (*engine.Engine, error) {
	lib, err := loadPrompts(&cfg.Model)
	if err != nil {
		return nil, err
	}

	drafting, err := newProvider(cfg.Model.Provider, cfg.Model.Name, &cfg.Model, cfg.Model.APIKey)
	if err != nil {
		return nil, fmt.Errorf("drafting provider: %w", err)
	}

	safetyModel := drafting
	if cfg.Model.SafetyProvider != cfg.Model.Provider || cfg.Model.SafetyName != cfg.Model.Name {
		key := ""
		if cfg.Model.SafetyProvider == cfg.Model.Provider {
			key = cfg.Model.APIKey
		}
		safetyModel, err = newProvider(cfg.Model.SafetyProvider, cfg.Model.SafetyName, &cfg.Model, key)
		if err != nil {
			return nil, fmt.Errorf("safety provider: %w", err)
		}
	}

	checker := llm.NewSafetyChecker(safetyModel, lib, cfg.Model.MaxTokens, logger)
	validator, err := newValidator(&cfg.Engine.Safety, safety.Config{
		Pattern:       cfg.Engine.Safety.PatternEnabled(),
		Semantic:      cfg.Engine.Safety.SemanticEnabled() && lib.Enabled(prompts.StageSemanticSafety),
		ChildSafety:   cfg.Engine.Safety.ChildSafetyEnabled() && lib.Enabled(prompts.StageChildSafety),
		SemanticLimit: cfg.Engine.Safety.SemanticLimit,
		ChildLimit:    cfg.Engine.Safety.ChildLimit,
	}, checker, logger)
	if err != nil {
		return nil, err
	}

	return build(cfg, tracker, llm.NewDrafter(drafting, lib, cfg.Model.MaxTokens, logger), validator, logger, opts)
}

// NewOffline builds an engine that never calls a model. Only the pattern
// safety layer runs, and requests must carry their own drafts.
func NewOffline(cfg *config.Config, tracker *accuracy.Tracker, logger *slog.Logger, opts ...engine.Option) (*engine.Engine, error) {
	validator, err := newValidator(&cfg.Engine.Safety, safety.Config{
		Pattern: cfg.Engine.Safety.PatternEnabled(),
	}, nil, logger)
	if err != nil {
		return nil, err
	}

	return build(cfg, tracker, nil, validator, logger, opts)
}

func build(
	cfg *config.Config,
	tracker *accuracy.Tracker,
	drafter engine.Drafter,
	validator engine.SafetyChecker,
	logger *slog.Logger,
	opts []engine.Option,
) (*engine.Engine, error) {
	locCfg := citations.DefaultConfig()
	locCfg.MinConfidence = cfg.Engine.MinCitationConfidence
	locCfg.MaxSpan = cfg.Engine.MaxCitationSpan
	locator, err := citations.NewLocator(locCfg)
	if err != nil {
		return nil, err
	}

	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	eng, err := engine.New(engine.FromConfig(&cfg.Engine), tracker, drafter, validator, locator, opts...)
	if err != nil {
		return nil, fmt.Errorf("engine init failed: %w", err)
	}
	return eng, nil
}

func loadPrompts(cfg *config.ModelConfig) (*prompts.Library, error) {
	if cfg.PromptsFile == "" {
		return prompts.Default(), nil
	}
	lib, err := prompts.LoadLibrary(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("prompt library: %w", err)
	}
	return lib, nil
}

func newProvider(name, model string, cfg *config.ModelConfig, apiKey string) (llm.Provider, error) {
	p, err := llm.NewProvider(name, model, llm.Credentials{
		APIKey:  apiKey,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	p = llm.WithTimeout(p, cfg.TimeoutDuration())
	return llm.Limited(p, name, cfg.RequestsPerSecond, cfg.Burst), nil
}

func newValidator(cfg *config.SafetyConfig, layers safety.Config, checker *llm.SafetyChecker, logger *slog.Logger) (*safety.Validator, error) {
	catalog := safety.DefaultCatalog()
	if cfg.PatternsFile != "" {
		loaded, err := safety.LoadPatterns(cfg.PatternsFile)
		if err != nil {
			return nil, fmt.Errorf("safety patterns: %w", err)
		}
		catalog = loaded
	}

	var (
		semantic safety.SemanticChecker
		child    safety.ChildChecker
	)
	if checker != nil {
		semantic, child = checker, checker
	}

	v, err := safety.New(layers, semantic, child, safety.WithCatalog(catalog), safety.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("safety validator: %w", err)
	}
	return v, nil
}
