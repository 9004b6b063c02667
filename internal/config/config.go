package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	LLM      LLMConfig      `toml:"llm"`
	Index    IndexConfig    `toml:"index"`
	MySQL    MySQLConfig    `toml:"mysql"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type AppConfig struct {
	Name        string `toml:"name"`
	Env         string `toml:"env"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	GinMode     string `toml:"gin_mode"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// AuthConfig enables bearer-token protection when JWTSecret is non-empty.
type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	JWTExpireMinute int    `toml:"jwt_expire_minute"`
}

type LLMConfig struct {
	BaseURL            string  `toml:"base_url"`
	APIKey             string  `toml:"api_key"`
	Model              string  `toml:"model"`
	Temperature        float64 `toml:"temperature"`
	EmbeddingModel     string  `toml:"embedding_model"`
	EmbeddingBatchSize int     `toml:"embedding_batch_size"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
}

type IndexConfig struct {
	Dir          string `toml:"dir"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
	TopK         int    `toml:"top_k"`
}

// MySQLConfig holds the audit trail database. An empty DSN disables it.
type MySQLConfig struct {
	DSN string `toml:"dsn"`
}

// RedisConfig holds the history cache. An empty Addr disables it.
type RedisConfig struct {
	Addr                   string `toml:"addr"`
	Password               string `toml:"password"`
	DB                     int    `toml:"db"`
	HistoryTTLSeconds      int    `toml:"history_ttl_seconds"`
	HistoryDirtyTTLSeconds int    `toml:"history_dirty_ttl_seconds"`
}

// RabbitMQConfig holds the async audit queue. An empty URL disables it.
type RabbitMQConfig struct {
	URL            string `toml:"url"`
	QAPersistQueue string `toml:"qa_persist_queue"`
}

func Load() (*Config, error) {
	// Values already present in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	if c.Index.Dir == "" {
		return errors.New("index dir must not be empty")
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index chunk size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index chunk overlap %d must be in [0, %d)", c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	if c.Index.TopK <= 0 {
		return fmt.Errorf("index top k must be positive, got %d", c.Index.TopK)
	}
	if c.LLM.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive, got %d", c.LLM.EmbeddingBatchSize)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "cogniva-docs",
			Env:         "dev",
			Host:        "0.0.0.0",
			Port:        8000,
			GinMode:     "debug",
			MaxUploadMB: 64,
		},
		Auth: AuthConfig{
			JWTExpireMinute: 120,
		},
		LLM: LLMConfig{
			BaseURL:            "https://openrouter.ai/api/v1",
			Model:              "openai/gpt-3.5-turbo",
			Temperature:        0.3,
			EmbeddingModel:     "text-embedding-ada-002",
			EmbeddingBatchSize: 16,
			TimeoutSeconds:     120,
		},
		Index: IndexConfig{
			Dir:          "faiss_index",
			ChunkSize:    50000,
			ChunkOverlap: 1000,
			TopK:         4,
		},
		Redis: RedisConfig{
			HistoryTTLSeconds:      60,
			HistoryDirtyTTLSeconds: 5,
		},
		RabbitMQ: RabbitMQConfig{
			QAPersistQueue: "docqa.qa.persist",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.MaxUploadMB = getEnvAsInt("APP_MAX_UPLOAD_MB", cfg.App.MaxUploadMB)
	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpireMinute = getEnvAsInt("AUTH_JWT_EXPIRE_MINUTE", cfg.Auth.JWTExpireMinute)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("OPENROUTER_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.EmbeddingModel = getEnv("LLM_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.EmbeddingBatchSize = getEnvAsInt("LLM_EMBEDDING_BATCH_SIZE", cfg.LLM.EmbeddingBatchSize)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.Index.Dir = getEnv("INDEX_DIR", cfg.Index.Dir)
	cfg.Index.ChunkSize = getEnvAsInt("INDEX_CHUNK_SIZE", cfg.Index.ChunkSize)
	cfg.Index.ChunkOverlap = getEnvAsInt("INDEX_CHUNK_OVERLAP", cfg.Index.ChunkOverlap)
	cfg.Index.TopK = getEnvAsInt("INDEX_TOP_K", cfg.Index.TopK)

	cfg.MySQL.DSN = getEnv("MYSQL_DSN", cfg.MySQL.DSN)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HistoryTTLSeconds = getEnvAsInt("REDIS_HISTORY_TTL_SECONDS", cfg.Redis.HistoryTTLSeconds)
	cfg.Redis.HistoryDirtyTTLSeconds = getEnvAsInt("REDIS_HISTORY_DIRTY_TTL_SECONDS", cfg.Redis.HistoryDirtyTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.QAPersistQueue = getEnv("RABBITMQ_QA_PERSIST_QUEUE", cfg.RabbitMQ.QAPersistQueue)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
