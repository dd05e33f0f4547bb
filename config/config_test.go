package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.75, cfg.Categorizer.MatchThreshold)
	assert.Greater(t, cfg.Categorizer.ConsolidationThreshold, cfg.Categorizer.MatchThreshold,
		"consolidation must be stricter than matching")
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.NotEmpty(t, cfg.LLM.Model)

	require.Len(t, cfg.SeedCategories, 9)
	names := make(map[string]bool)
	for _, seed := range cfg.SeedCategories {
		assert.NotEmpty(t, seed.Exemplars, "seed %q needs exemplars", seed.Name)
		names[seed.Name] = true
	}
	assert.True(t, names["Delivery issue"])
	assert.True(t, names["Positive Feedback"])
	assert.True(t, names["High Charges/Fees"])
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Categorizer, cfg.Categorizer)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewcat.yaml")
	content := `
categorizer:
  match_threshold: 0.8
  max_workers: 8
embedding:
  provider: mock
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Categorizer.MatchThreshold)
	assert.Equal(t, 8, cfg.Categorizer.MaxWorkers)
	assert.Equal(t, "mock", cfg.Embedding.Provider)

	// Untouched fields keep their defaults.
	assert.Equal(t, 0.92, cfg.Categorizer.ConsolidationThreshold)
	assert.Len(t, cfg.SeedCategories, 9)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewcat.yaml")

	cfg := DefaultConfig()
	cfg.Categorizer.MatchThreshold = 0.7
	cfg.Reviews.Glob = "exports/*.csv"
	cfg.PatternRules = []PatternRule{{Category: "Refund delay", Keywords: []string{"refund"}}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Categorizer, loaded.Categorizer)
	assert.Equal(t, cfg.Reviews, loaded.Reviews)
	assert.Equal(t, cfg.PatternRules, loaded.PatternRules)
	assert.Equal(t, cfg.SeedCategories, loaded.SeedCategories)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)

	content := "embedding:\n  provider: mock\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewcat.yaml"), []byte(content), 0o644))

	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
}

func TestStoreDBPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/data", ".reviewcat", "categories.db"), cfg.StoreDBPath("/data"))

	cfg.Store.Path = "/elsewhere/cats.db"
	assert.Equal(t, "/elsewhere/cats.db", cfg.StoreDBPath("/data"))
}
