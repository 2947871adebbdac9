package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/config"
	"github.com/Vvil1568/lct-hackathone/pkg/llm"
	"github.com/Vvil1568/lct-hackathone/pkg/prompts"
	"github.com/Vvil1568/lct-hackathone/pkg/services"
	"github.com/Vvil1568/lct-hackathone/pkg/solutions"
	"github.com/Vvil1568/lct-hackathone/pkg/workerpool"
)

// newOracle builds the remediation oracle from the llm section.
func newOracle(cfg *config.Config, logger *zap.Logger) (llm.Oracle, error) {
	baseURL := cfg.LLM.BaseURL
	if cfg.Engine.ResolveDockerHost {
		baseURL = config.ResolveURLForDocker(baseURL)
	}
	client, err := llm.NewClientFromProvider(llm.ProviderConfig{
		Provider:  cfg.LLM.Provider,
		BaseURL:   baseURL,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("oracle configured",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("endpoint", client.GetEndpoint()),
		zap.String("model", client.GetModel()))

	return llm.NewRemediationOracle(client, llm.OracleConfig{
		Temperature:      cfg.LLM.Temperature,
		RequestTimeout:   cfg.LLM.RequestTimeout,
		RateLimitDelay:   cfg.LLM.RateLimitDelay,
		RateLimitRetries: cfg.LLM.RateLimitRetries,
	}, logger), nil
}

// engineOpener opens sessions through the adapter registry, optionally
// rewriting loopback hosts when running inside a container.
func engineOpener(resolveDockerHost bool) services.EngineOpener {
	return func(ctx context.Context, d *queryengine.Descriptor, logger *zap.Logger) (queryengine.Engine, error) {
		if resolveDockerHost {
			resolved := *d
			resolved.Host = config.ResolveHostForDocker(d.Host)
			d = &resolved
		}
		return queryengine.Open(ctx, d, logger)
	}
}

// newOptimizer wires the pipeline. A nil oracle is allowed for report-only use.
func newOptimizer(cfg *config.Config, oracle llm.Oracle, logger *zap.Logger) (*services.OptimizerService, error) {
	library, err := solutions.Load(cfg.Analysis.SolutionsPath)
	if err != nil {
		return nil, fmt.Errorf("load solutions: %w", err)
	}
	logger.Debug("solutions loaded",
		zap.String("path", cfg.Analysis.SolutionsPath),
		zap.Strings("detectors", library.IDs()))

	composer := prompts.NewComposer(library, cfg.Analysis.OptimizedSchema, cfg.Analysis.MaxPlanChars)
	pool := workerpool.New(workerpool.Config{MaxConcurrent: cfg.Engine.ProfileConcurrency}, logger)

	return services.NewOptimizerService(
		engineOpener(cfg.Engine.ResolveDockerHost),
		oracle,
		composer,
		pool,
		services.OptimizerConfig{
			TopN:              cfg.Analysis.TopN,
			WideTableColumns:  cfg.Analysis.WideTableColumns,
			IncludeTableStats: cfg.Analysis.IncludeTableStats,
			PlanTimeout:       cfg.Engine.PlanTimeout,
			Loop: services.LoopConfig{
				MaxCorrections: cfg.Analysis.MaxCorrections,
				AttemptBackoff: cfg.Analysis.AttemptBackoff,
			},
		},
		logger,
	), nil
}
