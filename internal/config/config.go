package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Telegram  TelegramConfig   `json:"telegram"`
	Database  DatabaseConfig   `json:"database"`
	AI        AIConfig         `json:"ai"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Ingest    IngestConfig     `json:"ingest"`
	Extract   ExtractConfig    `json:"extract"`
	FileStore FileStoreConfig  `json:"file_store"`
	Ops       OpsConfig        `json:"ops"`
	Jobs      JobsConfig       `json:"jobs"`
	LogConfig logger.LogConfig `json:"log_config"`
}

type TelegramConfig struct {
	Token          string `json:"token"`
	PollTimeout    int    `json:"poll_timeout"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	GenerateModel  string      `json:"generate_model"`
	VisionModel    string      `json:"vision_model"`
	EmbedModel     string      `json:"embed_model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	CacheSize      int         `json:"cache_size"`
	CacheTTLHours  int         `json:"cache_ttl_hours"`
}

type RetrievalConfig struct {
	Threshold float32 `json:"threshold"`
	TopK      int     `json:"top_k"`
}

type IngestConfig struct {
	BatchSize    int `json:"batch_size"`
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type ExtractConfig struct {
	PDFLicenseKey string `json:"pdf_license_key"`
}

// FileStoreConfig mirrors the registry args shape: Type selects the backend,
// Data carries backend-specific settings. An empty Type disables archiving
// of uploaded originals.
type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type OpsConfig struct {
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

type JobsConfig struct {
	EmbedCacheCleanupSpec string `json:"embed_cache_cleanup_spec"`
	EmbedCacheKeepDays    int    `json:"embed_cache_keep_days"`
	SessionSweepSpec      string `json:"session_sweep_spec"`
	SessionIdleHours      int    `json:"session_idle_hours"`
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
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = 30
	}
	if c.Telegram.MaxUploadBytes <= 0 {
		c.Telegram.MaxUploadBytes = 20 << 20
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.AI.Provider == "" {
		return fmt.Errorf("ai.provider is required")
	}
	if c.AI.GenerateModel == "" {
		c.AI.GenerateModel = "gemini-2.5-pro"
	}
	if c.AI.VisionModel == "" {
		c.AI.VisionModel = "gemini-2.5-flash"
	}
	if c.AI.EmbedModel == "" {
		c.AI.EmbedModel = "text-embedding-004"
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.AI.CacheSize <= 0 {
		c.AI.CacheSize = 10000
	}
	if c.AI.CacheTTLHours <= 0 {
		c.AI.CacheTTLHours = 2
	}
	if c.Retrieval.Threshold <= 0 {
		c.Retrieval.Threshold = 0.5
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 128
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1500
	}
	if c.Ingest.ChunkOverlap <= 0 {
		c.Ingest.ChunkOverlap = 300
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be smaller than ingest.chunk_size")
	}
	if c.Jobs.EmbedCacheCleanupSpec == "" {
		c.Jobs.EmbedCacheCleanupSpec = "30 3 * * *"
	}
	if c.Jobs.EmbedCacheKeepDays <= 0 {
		c.Jobs.EmbedCacheKeepDays = 30
	}
	if c.Jobs.SessionSweepSpec == "" {
		c.Jobs.SessionSweepSpec = "0 * * * *"
	}
	if c.Jobs.SessionIdleHours <= 0 {
		c.Jobs.SessionIdleHours = 24
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	return nil
}
