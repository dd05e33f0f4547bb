package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"reviewcat/config"
	"reviewcat/internal/adapter/cache"
	"reviewcat/internal/adapter/discovery"
	"reviewcat/internal/adapter/embedding"
	"reviewcat/internal/adapter/pattern"
	"reviewcat/internal/adapter/store"
	"reviewcat/internal/domain"
	"reviewcat/internal/port"
	"reviewcat/internal/usecase"
)

// buildCategorizer wires the full pipeline from configuration: durable
// stores, embedder with cache, discovery service, pattern matcher and the
// orchestrator. Missing credentials disable a tier instead of failing the
// command; the pipeline then degrades exactly as it does under an outage.
func buildCategorizer() (*usecase.Categorizer, func(), error) {
	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	catStore, err := store.NewBoltCategoryStore(cfg.StoreDBPath(rootDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open category store: %w", err)
	}

	index, err := store.NewBoltVectorIndex(catStore.DB())
	if err != nil {
		catStore.Close()
		return nil, nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	embedder := buildEmbedder()
	discoverer := buildDiscovery()
	matcher := buildMatcher()

	cat := usecase.NewCategorizer(embedder, index, catStore, discoverer, matcher, usecase.Options{
		MatchThreshold:         cfg.Categorizer.MatchThreshold,
		ConsolidationThreshold: cfg.Categorizer.ConsolidationThreshold,
		CallTimeout:            time.Duration(cfg.Categorizer.CallTimeoutSeconds) * time.Second,
		MaxWorkers:             cfg.Categorizer.MaxWorkers,
		RateLimit:              cfg.Categorizer.RateLimitPerSecond,
	}, log)

	if err := cat.Seed(seedCategories()); err != nil {
		catStore.Close()
		return nil, nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	cleanup := func() {
		if err := catStore.Close(); err != nil {
			log.Warn("failed to close category store", zap.Error(err))
		}
	}
	return cat, cleanup, nil
}

func buildEmbedder() port.Embedder {
	var inner port.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		inner = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		e, err := embedding.NewOpenAIEmbedder(
			cfg.Embedding.APIKeyEnv,
			cfg.Embedding.Model,
			cfg.Embedding.BaseURL,
			cfg.Embedding.BatchSize,
		)
		if err != nil {
			log.Warn("embedding provider not configured, vector tier disabled", zap.Error(err))
			return &embedding.UnavailableEmbedder{Reason: err.Error()}
		}
		inner = e
	}

	return cache.NewCachedEmbedder(inner, cache.NewEmbeddingCache(cfg.Embedding.CacheSize, time.Hour))
}

func buildDiscovery() port.CategoryDiscovery {
	d, err := discovery.NewOpenAIDiscovery(
		cfg.LLM.APIKeyEnv,
		cfg.LLM.Model,
		cfg.LLM.BaseURL,
		cfg.LLM.Temperature,
	)
	if err != nil {
		log.Warn("discovery model not configured, llm tier disabled", zap.Error(err))
		return &discovery.Disabled{Reason: err.Error()}
	}
	return d
}

func buildMatcher() *pattern.Matcher {
	rules := make([]pattern.Rule, 0, len(cfg.SeedCategories)+len(cfg.PatternRules))
	for _, seed := range cfg.SeedCategories {
		rules = append(rules, pattern.CompileKeywords(seed.Name, seed.Exemplars))
	}
	for _, rule := range cfg.PatternRules {
		rules = append(rules, pattern.CompileKeywords(rule.Category, rule.Keywords))
	}
	return pattern.NewMatcher(rules)
}

func seedCategories() []domain.Category {
	seeds := make([]domain.Category, 0, len(cfg.SeedCategories))
	for _, seed := range cfg.SeedCategories {
		exemplars := make([]domain.Exemplar, 0, len(seed.Exemplars))
		for _, text := range seed.Exemplars {
			exemplars = append(exemplars, domain.Exemplar{Text: text})
		}
		seeds = append(seeds, domain.Category{
			Name:      seed.Name,
			Sentiment: domain.ParseSentiment(seed.Sentiment),
			Exemplars: exemplars,
		})
	}
	return seeds
}
