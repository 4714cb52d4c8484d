package config

// DefaultAllowKeywords selects study-related page links while crawling.
var DefaultAllowKeywords = []string{
	"study", "lesson", "teaching", "sermon", "bible",
	"book", "chapter", "verse", "commentary", "article",
}

// Default returns a fully defaulted config with no file behind it.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".yomu/yomu.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = ".yomu/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = ".yomu/indices/vectors.bin"
	}
	if cfg.Storage.VectorIndexType == "" {
		cfg.Storage.VectorIndexType = VectorIndexMemory
	}
	if cfg.Crawl.MaxDepth == 0 {
		cfg.Crawl.MaxDepth = 2
	}
	if cfg.Crawl.MaxPages == 0 {
		cfg.Crawl.MaxPages = 200
	}
	if cfg.Crawl.Delay == "" {
		cfg.Crawl.Delay = "1s"
	}
	if cfg.Crawl.Timeout == "" {
		cfg.Crawl.Timeout = "30s"
	}
	if cfg.Crawl.UserAgent == "" {
		cfg.Crawl.UserAgent = "yomu/1.0 (+https://github.com/hyperjump/yomu)"
	}
	if cfg.Crawl.MaxBodyBytes == 0 {
		cfg.Crawl.MaxBodyBytes = 20 * 1024 * 1024
	}
	if cfg.Crawl.AllowKeywords == nil {
		cfg.Crawl.AllowKeywords = append([]string(nil), DefaultAllowKeywords...)
	}
	if cfg.Crawl.DocumentExtensions == nil {
		cfg.Crawl.DocumentExtensions = []string{".pdf"}
	}
	// An explicit size without an overlap means no overlap.
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 800
		if cfg.Chunking.Overlap == 0 {
			cfg.Chunking.Overlap = 200
		}
	}
	if cfg.Retrieval.Strategy == "" {
		cfg.Retrieval.Strategy = StrategyLexical
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.TitleBonus == 0 {
		cfg.Retrieval.TitleBonus = 5
	}
	if cfg.Retrieval.KeywordWeight == 0 && cfg.Retrieval.VectorWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.5
		cfg.Retrieval.VectorWeight = 0.5
	}
	if cfg.Answer.MaxSources == 0 {
		cfg.Answer.MaxSources = 3
	}
	if cfg.Answer.ExcerptWindow == 0 {
		cfg.Answer.ExcerptWindow = 300
	}
	if cfg.Answer.ExcerptStep == 0 {
		cfg.Answer.ExcerptStep = 50
	}
	if cfg.Embedding.Provider == "" {
		if cfg.Retrieval.Strategy == StrategyVector || cfg.Retrieval.Strategy == StrategyHybrid {
			cfg.Embedding.Provider = ProviderOpenAI
		} else {
			cfg.Embedding.Provider = ProviderNone
		}
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case ProviderONNX, ProviderMock:
			cfg.Embedding.Dimensions = 384
		default:
			cfg.Embedding.Dimensions = 1536
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = ProviderNone
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4.1-mini"
	}
	if cfg.Completion.APIKeyEnv == "" {
		cfg.Completion.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 800
	}
	if cfg.Completion.Timeout == "" {
		cfg.Completion.Timeout = "120s"
	}
}
