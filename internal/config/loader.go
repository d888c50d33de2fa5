package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables (optionally .env).
// It follows the same shape as Amelia's other ambient loaders: read env
// with no defaults, apply defaults once after all sources are merged, then
// validate the required fields at the end.
func Load() (Config, error) {
	// Overload so a local .env deterministically wins during development,
	// matching how the rest of the stack loads configuration.
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.LogPath = strings.TrimSpace(getenv("AMELIA_LOG_PATH"))
	cfg.LogLevel = strings.TrimSpace(getenv("AMELIA_LOG_LEVEL"))

	cfg.Store.DSN = strings.TrimSpace(getenv("AMELIA_STORE_DSN"))
	cfg.Store.MaxConns = int32(intFromEnv("AMELIA_STORE_MAX_CONNS", 0))
	cfg.Store.MinConns = int32(intFromEnv("AMELIA_STORE_MIN_CONNS", 0))
	cfg.Store.ConnLifetime = durationFromEnv("AMELIA_STORE_CONN_LIFETIME", 0)
	cfg.Store.ConnIdleTime = durationFromEnv("AMELIA_STORE_CONN_IDLE_TIME", 0)

	cfg.Embedding.BaseURL = strings.TrimSpace(getenv("AMELIA_EMBEDDING_BASE_URL"))
	cfg.Embedding.Path = strings.TrimSpace(getenv("AMELIA_EMBEDDING_PATH"))
	cfg.Embedding.Model = strings.TrimSpace(getenv("AMELIA_EMBEDDING_MODEL"))
	cfg.Embedding.APIKey = strings.TrimSpace(getenv("AMELIA_EMBEDDING_API_KEY"))
	cfg.Embedding.APIHeader = strings.TrimSpace(getenv("AMELIA_EMBEDDING_API_HEADER"))
	cfg.Embedding.Dimension = intFromEnv("AMELIA_EMBEDDING_DIMENSION", 0)
	cfg.Embedding.BatchSize = intFromEnv("AMELIA_EMBEDDING_BATCH_SIZE", 0)
	cfg.Embedding.Timeout = durationFromEnv("AMELIA_EMBEDDING_TIMEOUT", 0)

	cfg.Rerank.Enabled = boolFromEnv("AMELIA_RERANK_ENABLED", false)
	cfg.Rerank.BaseURL = strings.TrimSpace(getenv("AMELIA_RERANK_BASE_URL"))
	cfg.Rerank.Path = strings.TrimSpace(getenv("AMELIA_RERANK_PATH"))
	cfg.Rerank.Model = strings.TrimSpace(getenv("AMELIA_RERANK_MODEL"))
	cfg.Rerank.APIKey = strings.TrimSpace(getenv("AMELIA_RERANK_API_KEY"))
	cfg.Rerank.Timeout = durationFromEnv("AMELIA_RERANK_TIMEOUT", 0)

	cfg.ASR.ModelPath = strings.TrimSpace(getenv("AMELIA_ASR_MODEL_PATH"))
	cfg.ASR.Language = strings.TrimSpace(getenv("AMELIA_ASR_LANGUAGE"))

	cfg.Crawl.UserAgent = strings.TrimSpace(getenv("AMELIA_CRAWL_USER_AGENT"))
	cfg.Crawl.RequestsPerSecond = floatFromEnv("AMELIA_CRAWL_RPS", 0)
	cfg.Crawl.BucketCapacity = intFromEnv("AMELIA_CRAWL_BUCKET_CAPACITY", 0)
	cfg.Crawl.MaxRetries = intFromEnv("AMELIA_CRAWL_MAX_RETRIES", 0)
	cfg.Crawl.CircuitWindow = durationFromEnv("AMELIA_CRAWL_CIRCUIT_WINDOW", 0)
	cfg.Crawl.CircuitThreshold = intFromEnv("AMELIA_CRAWL_CIRCUIT_THRESHOLD", 0)
	cfg.Crawl.JSRenderingEnabled = boolFromEnv("AMELIA_CRAWL_JS_ENABLED", false)
	cfg.Crawl.FetchTimeout = durationFromEnv("AMELIA_CRAWL_FETCH_TIMEOUT", 0)

	cfg.Jobs.DispatchInterval = durationFromEnv("AMELIA_JOBS_DISPATCH_INTERVAL", 0)
	cfg.Jobs.CrawlConcurrency = intFromEnv("AMELIA_JOBS_CRAWL_CONCURRENCY", 0)
	cfg.Jobs.TranscribeWorkers = intFromEnv("AMELIA_JOBS_TRANSCRIBE_WORKERS", 0)
	cfg.Jobs.IngestWorkers = intFromEnv("AMELIA_JOBS_INGEST_WORKERS", 0)
	cfg.Jobs.MaxRetries = intFromEnv("AMELIA_JOBS_MAX_RETRIES", 0)

	cfg.Chunk.TargetChars = intFromEnv("AMELIA_CHUNK_TARGET_CHARS", 0)
	cfg.Chunk.OverlapChars = intFromEnv("AMELIA_CHUNK_OVERLAP_CHARS", 0)

	cfg.DefaultCollection = strings.TrimSpace(getenv("AMELIA_DEFAULT_COLLECTION"))
	cfg.RRFK = intFromEnv("AMELIA_RRF_K", 0)
	cfg.HybridAlpha = floatFromEnv("AMELIA_HYBRID_ALPHA", -1)

	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Store.MaxConns == 0 {
		cfg.Store.MaxConns = 8
	}
	if cfg.Store.ConnLifetime == 0 {
		cfg.Store.ConnLifetime = time.Hour
	}
	if cfg.Store.ConnIdleTime == 0 {
		cfg.Store.ConnIdleTime = 5 * time.Minute
	}
	if cfg.Embedding.Path == "" {
		cfg.Embedding.Path = "/v1/embeddings"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1024
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Rerank.Timeout == 0 {
		cfg.Rerank.Timeout = 30 * time.Second
	}
	if cfg.Crawl.UserAgent == "" {
		cfg.Crawl.UserAgent = "AmeliaBot/1.0 (+https://example.invalid/bot)"
	}
	if cfg.Crawl.RequestsPerSecond == 0 {
		cfg.Crawl.RequestsPerSecond = 1
	}
	if cfg.Crawl.BucketCapacity == 0 {
		cfg.Crawl.BucketCapacity = 1
	}
	if cfg.Crawl.MaxRetries == 0 {
		cfg.Crawl.MaxRetries = 5
	}
	if cfg.Crawl.CircuitWindow == 0 {
		cfg.Crawl.CircuitWindow = 5 * time.Minute
	}
	if cfg.Crawl.CircuitThreshold == 0 {
		cfg.Crawl.CircuitThreshold = 10
	}
	if cfg.Crawl.FetchTimeout == 0 {
		cfg.Crawl.FetchTimeout = 20 * time.Second
	}
	if cfg.Jobs.DispatchInterval == 0 {
		cfg.Jobs.DispatchInterval = time.Second
	}
	if cfg.Jobs.CrawlConcurrency == 0 {
		cfg.Jobs.CrawlConcurrency = 3
	}
	if cfg.Jobs.TranscribeWorkers == 0 {
		cfg.Jobs.TranscribeWorkers = 2
	}
	if cfg.Jobs.IngestWorkers == 0 {
		cfg.Jobs.IngestWorkers = 5
	}
	if cfg.Jobs.MaxRetries == 0 {
		cfg.Jobs.MaxRetries = 5
	}
	if cfg.Chunk.TargetChars == 0 {
		cfg.Chunk.TargetChars = 2000
	}
	if cfg.Chunk.OverlapChars == 0 {
		cfg.Chunk.OverlapChars = 200
	}
	if cfg.DefaultCollection == "" {
		cfg.DefaultCollection = "default"
	}
	if cfg.RRFK == 0 {
		cfg.RRFK = 60
	}
	if cfg.HybridAlpha < 0 {
		cfg.HybridAlpha = 0.5
	}
}

func validate(cfg Config) error {
	var missing []string
	if cfg.Store.DSN == "" {
		missing = append(missing, "AMELIA_STORE_DSN")
	}
	if cfg.Embedding.BaseURL == "" {
		missing = append(missing, "AMELIA_EMBEDDING_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key string) string { return os.Getenv(key) }

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
