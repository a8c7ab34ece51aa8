package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	MaxConns int    `json:"max_conns"`
}

type VectorStoreConfig struct {
	// postgres or memory; memory keeps the index in-process and loses it on
	// restart
	Type string `json:"type"`
}

type FileStoreConfig struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type AIFallbackConfig struct {
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type AIConfig struct {
	Provider        string                 `json:"provider"`
	Model           string                 `json:"model"`
	EmbedProvider   string                 `json:"embed_provider"`
	EmbedModel      string                 `json:"embed_model"`
	EmbedDim        int                    `json:"embed_dim"`
	TimeoutSeconds  int                    `json:"timeout_seconds"`
	MaxInputChars   int                    `json:"max_input_chars"`
	CacheSize       int                    `json:"cache_size"`
	CacheTTLMinutes int                    `json:"cache_ttl_minutes"`
	Data            map[string]interface{} `json:"data"`
	Fallback        *AIFallbackConfig      `json:"fallback"`
}

// Overlap and MinScore are pointers so that an explicit 0 survives loading
// instead of being swapped for the default.
type ChunkingConfig struct {
	Size    int  `json:"size"`
	Overlap *int `json:"overlap"`
}

type RetrievalConfig struct {
	TopK     int      `json:"top_k"`
	MinScore *float32 `json:"min_score"`
}

type JobsConfig struct {
	EmbedCacheCleanupSpec string `json:"embed_cache_cleanup_spec"`
	EmbedCacheMaxAgeDays  int    `json:"embed_cache_max_age_days"`
}

type Config struct {
	Port             int               `json:"port"`
	LogConfig        logger.LogConfig  `json:"log_config"`
	Database         DatabaseConfig    `json:"database"`
	VectorStore      VectorStoreConfig `json:"vector_store"`
	FileStore        FileStoreConfig   `json:"file_store"`
	AI               AIConfig          `json:"ai"`
	Chunking         ChunkingConfig    `json:"chunking"`
	Retrieval        RetrievalConfig   `json:"retrieval"`
	CORSOrigins      []string          `json:"cors_origins"`
	RateLimitSeconds int               `json:"rate_limit_seconds"`
	Jobs             JobsConfig        `json:"jobs"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "postgres"
	}
	switch cfg.VectorStore.Type {
	case "postgres":
		if cfg.Database.DSN == "" && (cfg.Database.Host == "" || cfg.Database.DBName == "") {
			return nil, fmt.Errorf("database.dsn or database.host/db_name is required for the postgres store")
		}
		if cfg.Database.MaxConns == 0 {
			cfg.Database.MaxConns = 8
		}
	case "memory":
	default:
		return nil, fmt.Errorf("vector_store.type must be postgres or memory")
	}
	if cfg.AI.Provider == "" || cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.provider and ai.model are required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 768
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 8000
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 4096
	}
	if cfg.AI.CacheTTLMinutes == 0 {
		cfg.AI.CacheTTLMinutes = 120
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == nil {
		overlap := 50
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Chunking.Size <= 0 || *cfg.Chunking.Overlap < 0 || *cfg.Chunking.Overlap >= cfg.Chunking.Size {
		return nil, fmt.Errorf("chunking.overlap must be in [0, chunking.size)")
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.TopK < 1 {
		return nil, fmt.Errorf("retrieval.top_k must be >= 1")
	}
	if cfg.Retrieval.MinScore == nil {
		minScore := float32(0.25)
		cfg.Retrieval.MinScore = &minScore
	}
	if *cfg.Retrieval.MinScore < -1 || *cfg.Retrieval.MinScore > 1 {
		return nil, fmt.Errorf("retrieval.min_score must be in [-1, 1]")
	}
	if cfg.Jobs.EmbedCacheCleanupSpec == "" {
		cfg.Jobs.EmbedCacheCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.EmbedCacheMaxAgeDays == 0 {
		cfg.Jobs.EmbedCacheMaxAgeDays = 30
	}
	return &cfg, nil
}
