package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for reviewcat.
type Config struct {
	Categorizer    CategorizerConfig `yaml:"categorizer"`
	Embedding      EmbeddingConfig   `yaml:"embedding"`
	LLM            LLMConfig         `yaml:"llm"`
	Store          StoreConfig       `yaml:"store"`
	Reviews        ReviewsConfig     `yaml:"reviews"`
	Logging        LoggingConfig     `yaml:"logging"`
	SeedCategories []SeedCategory    `yaml:"seed_categories"`
	PatternRules   []PatternRule     `yaml:"pattern_rules"`
}

// CategorizerConfig holds the pipeline tunables.
type CategorizerConfig struct {
	MatchThreshold         float64 `yaml:"match_threshold"`
	ConsolidationThreshold float64 `yaml:"consolidation_threshold"`
	CallTimeoutSeconds     int     `yaml:"call_timeout_seconds"`
	MaxWorkers             int     `yaml:"max_workers"`
	RateLimitPerSecond     float64 `yaml:"rate_limit_per_second"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "mock"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// LLMConfig holds the category discovery model configuration.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
}

// StoreConfig holds category store configuration.
type StoreConfig struct {
	Path string `yaml:"path"` // empty means <dir>/.reviewcat/categories.db
}

// ReviewsConfig holds CSV ingestion configuration.
type ReviewsConfig struct {
	Glob       string `yaml:"glob"`
	TextColumn string `yaml:"text_column"`
	DateColumn string `yaml:"date_column"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// SeedCategory is a category created at startup, with exemplar phrases that
// also feed the pattern-matcher rule table.
type SeedCategory struct {
	Name      string   `yaml:"name"`
	Sentiment string   `yaml:"sentiment"`
	Exemplars []string `yaml:"exemplars"`
}

// PatternRule is an extra keyword rule for the fallback matcher, evaluated
// after the seed-derived rules.
type PatternRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// DefaultConfig returns the default configuration, including the seed
// category set.
func DefaultConfig() *Config {
	return &Config{
		Categorizer: CategorizerConfig{
			MatchThreshold:         0.75,
			ConsolidationThreshold: 0.92,
			CallTimeoutSeconds:     30,
			MaxWorkers:             4,
			RateLimitPerSecond:     0,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
			CacheSize: 2000,
		},
		LLM: LLMConfig{
			Model:       "gpt-3.5-turbo-0125",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.2,
		},
		Reviews: ReviewsConfig{
			Glob:       "reviews/**/*.csv",
			TextColumn: "content",
			DateColumn: "at",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		SeedCategories: []SeedCategory{
			{
				Name:      "Delivery issue",
				Sentiment: "negative",
				Exemplars: []string{
					"order arrived late",
					"delivery delay",
					"rider got lost",
					"didn't follow instructions",
					"delivery took too long",
					"wrong delivery address",
				},
			},
			{
				Name:      "Food stale",
				Sentiment: "negative",
				Exemplars: []string{
					"food was cold",
					"biryani was too salty",
					"burger was soggy",
					"pizza was cold",
					"stale food",
					"not fresh",
				},
			},
			{
				Name:      "Delivery partner rude",
				Sentiment: "negative",
				Exemplars: []string{
					"delivery guy was rude",
					"rider was rude",
					"delivery person behaved badly",
					"rider was impolite",
					"rude to security guard",
				},
			},
			{
				Name:      "Maps not working properly",
				Sentiment: "negative",
				Exemplars: []string{
					"map location incorrect",
					"maps not showing location properly",
					"location tracking issues",
					"wrong directions",
				},
			},
			{
				Name:      "Instamart should be open all night",
				Sentiment: "neutral",
				Exemplars: []string{
					"late-night instamart",
					"instamart availability at night",
					"24/7 instamart service",
					"night delivery",
				},
			},
			{
				Name:      "Bring back 10 minute bolt delivery",
				Sentiment: "neutral",
				Exemplars: []string{
					"bring back ten minute delivery",
					"10-min delivery request",
					"fast delivery option",
					"quick delivery",
				},
			},
			{
				Name:      "App issues",
				Sentiment: "negative",
				Exemplars: []string{
					"app crash",
					"app slow",
					"unable to update address",
					"payment failed",
					"login issues",
				},
			},
			{
				Name:      "High Charges/Fees",
				Sentiment: "negative",
				Exemplars: []string{
					"high delivery charges",
					"extra fees",
					"GST charges",
					"platform fees",
					"expensive",
					"overcharged",
				},
			},
			{
				Name:      "Positive Feedback",
				Sentiment: "positive",
				Exemplars: []string{
					"good",
					"nice",
					"great",
					"excellent",
					"love",
					"best",
					"awesome",
					"amazing service",
				},
			},
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for reviewcat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "reviewcat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".reviewcat", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StoreDBPath returns the path to the category database for a root directory.
func (c *Config) StoreDBPath(dir string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(dir, ".reviewcat", "categories.db")
}

// EnsureDataDir ensures the .reviewcat directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".reviewcat"), 0755)
}
