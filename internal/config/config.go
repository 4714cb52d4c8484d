// Package config provides configuration loading and structs for yomu.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/yomu/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug" toml:"debug"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Storage    StorageConfig    `yaml:"storage" toml:"storage"`
	Crawl      CrawlConfig      `yaml:"crawl" toml:"crawl"`
	Chunking   ChunkingConfig   `yaml:"chunking" toml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" toml:"retrieval"`
	Answer     AnswerConfig     `yaml:"answer" toml:"answer"`
	Embedding  EmbeddingConfig  `yaml:"embedding" toml:"embedding"`
	Completion CompletionConfig `yaml:"completion" toml:"completion"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path" toml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path" toml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path" toml:"vector_index_path"`
	// VectorIndexType selects the vector backend: "memory" or "faiss" (needs -tags=faiss).
	VectorIndexType string `yaml:"vector_index_type" toml:"vector_index_type"`
}

// Vector index backends.
const (
	VectorIndexMemory = "memory"
	VectorIndexFAISS  = "faiss"
)

// CrawlConfig holds crawl frontier and fetcher settings.
type CrawlConfig struct {
	SeedURL            string   `yaml:"seed_url" toml:"seed_url"`
	MaxDepth           int      `yaml:"max_depth" toml:"max_depth"`
	MaxPages           int      `yaml:"max_pages" toml:"max_pages"`
	Delay              string   `yaml:"delay" toml:"delay"`
	Timeout            string   `yaml:"timeout" toml:"timeout"`
	UserAgent          string   `yaml:"user_agent" toml:"user_agent"`
	MaxBodyBytes       int64    `yaml:"max_body_bytes" toml:"max_body_bytes"`
	AllowKeywords      []string `yaml:"allow_keywords" toml:"allow_keywords"`
	DocumentExtensions []string `yaml:"document_extensions" toml:"document_extensions"`
	RespectRobots      bool     `yaml:"respect_robots" toml:"respect_robots"`
}

// GetDelay returns the pacing delay between outbound fetches.
func (c *CrawlConfig) GetDelay() time.Duration {
	d, err := time.ParseDuration(c.Delay)
	if err != nil {
		return time.Second
	}
	return d
}

// GetTimeout returns the per-request fetch timeout.
func (c *CrawlConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ChunkingConfig holds chunk window settings, in whitespace tokens.
type ChunkingConfig struct {
	Size    int `yaml:"size" toml:"size"`
	Overlap int `yaml:"overlap" toml:"overlap"`
}

// Retrieval strategies.
const (
	StrategyLexical = "lexical"
	StrategyVector  = "vector"
	StrategyKeyword = "keyword"
	StrategyHybrid  = "hybrid"
)

// RetrievalConfig selects and tunes the ranking strategy.
type RetrievalConfig struct {
	Strategy   string  `yaml:"strategy" toml:"strategy"`
	TopK       int     `yaml:"top_k" toml:"top_k"`
	TitleBonus float64 `yaml:"title_bonus" toml:"title_bonus"`
	MinScore   float64 `yaml:"min_score" toml:"min_score"`
	// Hybrid fusion weights, applied to max-normalized keyword and vector scores.
	KeywordWeight float64 `yaml:"keyword_weight" toml:"keyword_weight"`
	VectorWeight  float64 `yaml:"vector_weight" toml:"vector_weight"`
}

// AnswerConfig tunes the extractive answer fallback.
type AnswerConfig struct {
	MaxSources    int `yaml:"max_sources" toml:"max_sources"`
	ExcerptWindow int `yaml:"excerpt_window" toml:"excerpt_window"`
	ExcerptStep   int `yaml:"excerpt_step" toml:"excerpt_step"`
}

// Embedding providers.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
	ProviderMock   = "mock"
)

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" toml:"provider"`
	Model      string `yaml:"model" toml:"model"`
	BaseURL    string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env" toml:"api_key_env"`
	Dimensions int    `yaml:"dimensions" toml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens" toml:"max_tokens"`
	ModelPath  string `yaml:"model_path" toml:"model_path"`
	CacheSize  int    `yaml:"cache_size" toml:"cache_size"`
}

// APIKey returns the credential from the configured environment variable.
func (e *EmbeddingConfig) APIKey() string {
	return os.Getenv(e.APIKeyEnv)
}

// CompletionConfig holds completion model settings. Provider "none" selects the extractive answer.
type CompletionConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	Model       string  `yaml:"model" toml:"model"`
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env" toml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	Timeout     string  `yaml:"timeout" toml:"timeout"`
}

// APIKey returns the credential from the configured environment variable.
func (c *CompletionConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// GetTimeout returns the completion request timeout.
func (c *CompletionConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// Load reads and parses the config file at path, expands paths, applies defaults, and validates.
// Files ending in .toml are parsed as TOML; anything else as YAML. A .env file next to the
// config, when present, is loaded into the environment without overriding existing variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if envPath := filepath.Join(configDir, ".env"); fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault returns the defaulted config used when no config file exists. Storage paths
// resolve under the home directory.
func LoadDefault() (*Config, error) {
	cfg := Default()
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, ".")
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, ".")
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, ".")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that make the pipeline unusable. Errors wrap models.ErrConfiguration.
// Credentials are checked separately by the component constructors, which know whether a
// capability is actually required.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", models.ErrConfiguration)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", models.ErrConfiguration)
	}
	switch c.Retrieval.Strategy {
	case StrategyLexical, StrategyVector, StrategyKeyword, StrategyHybrid:
	default:
		return fmt.Errorf("%w: unknown retrieval.strategy %q", models.ErrConfiguration, c.Retrieval.Strategy)
	}
	needsVectors := c.Retrieval.Strategy == StrategyVector || c.Retrieval.Strategy == StrategyHybrid
	if needsVectors && c.Embedding.Provider == ProviderNone {
		return fmt.Errorf("%w: retrieval.strategy %s requires an embedding provider", models.ErrConfiguration, c.Retrieval.Strategy)
	}
	if c.Retrieval.KeywordWeight < 0 || c.Retrieval.VectorWeight < 0 {
		return fmt.Errorf("%w: retrieval weights must not be negative", models.ErrConfiguration)
	}
	switch c.Storage.VectorIndexType {
	case VectorIndexMemory, VectorIndexFAISS:
	default:
		return fmt.Errorf("%w: unknown storage.vector_index_type %q", models.ErrConfiguration, c.Storage.VectorIndexType)
	}
	switch c.Embedding.Provider {
	case ProviderNone, ProviderOpenAI, ProviderONNX, ProviderMock:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", models.ErrConfiguration, c.Embedding.Provider)
	}
	switch c.Completion.Provider {
	case ProviderNone, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown completion.provider %q", models.ErrConfiguration, c.Completion.Provider)
	}
	if c.Answer.ExcerptStep <= 0 || c.Answer.ExcerptWindow <= 0 {
		return fmt.Errorf("%w: answer.excerpt_window and answer.excerpt_step must be positive", models.ErrConfiguration)
	}
	for name, v := range map[string]string{"crawl.delay": c.Crawl.Delay, "crawl.timeout": c.Crawl.Timeout, "completion.timeout": c.Completion.Timeout} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%w: %s: %v", models.ErrConfiguration, name, err)
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
