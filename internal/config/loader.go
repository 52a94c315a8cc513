package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, optionally overlaid
// by a local .env file (godotenv.Overload lets .env win over a pre-existing
// OS environment, matching local-dev convention).
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.Host = strings.TrimSpace(os.Getenv("HOST"))
	cfg.Port = parseIntOr(os.Getenv("PORT"), 8080)

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))

	cfg.LLM.Provider = strings.TrimSpace(os.Getenv("LLM_PROVIDER"))
	cfg.LLM.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.LLM.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	cfg.LLM.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	cfg.LLM.Anthropic.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.LLM.Anthropic.Model = strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	cfg.LLM.Anthropic.BaseURL = strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))

	cfg.Embedding.BaseURL = strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL"))
	cfg.Embedding.Path = strings.TrimSpace(os.Getenv("EMBEDDING_PATH"))
	cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY"))
	cfg.Embedding.APIHeader = strings.TrimSpace(os.Getenv("EMBEDDING_API_HEADER"))
	cfg.Embedding.Model = strings.TrimSpace(os.Getenv("EMBEDDING_MODEL"))
	cfg.Embedding.Dimensions = parseIntOr(os.Getenv("EMBEDDING_DIMENSIONS"), 1536)
	cfg.Embedding.Timeout = parseIntOr(os.Getenv("EMBEDDING_TIMEOUT_SECONDS"), 30)

	cfg.Search.Backend = strings.TrimSpace(os.Getenv("SEARCH_BACKEND"))
	cfg.Search.ConfigPath = strings.TrimSpace(os.Getenv("SEARCH_CONFIG_PATH"))
	cfg.Search.Postgres.DSN = strings.TrimSpace(os.Getenv("SEARCH_POSTGRES_DSN"))
	cfg.Search.Postgres.VectorDimensions = parseIntOr(os.Getenv("SEARCH_POSTGRES_VECTOR_DIMENSIONS"), 1536)
	cfg.Search.Postgres.VectorMetric = strings.TrimSpace(os.Getenv("SEARCH_POSTGRES_VECTOR_METRIC"))
	cfg.Search.Qdrant.DSN = strings.TrimSpace(os.Getenv("SEARCH_QDRANT_DSN"))
	cfg.Search.Qdrant.Collection = strings.TrimSpace(os.Getenv("SEARCH_QDRANT_COLLECTION"))
	cfg.Search.Qdrant.Dimensions = parseIntOr(os.Getenv("SEARCH_QDRANT_DIMENSIONS"), 1536)
	cfg.Search.Qdrant.Metric = strings.TrimSpace(os.Getenv("SEARCH_QDRANT_METRIC"))

	cfg.S3.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	cfg.S3.Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	cfg.S3.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	cfg.S3.AccessKey = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY"))
	cfg.S3.SecretKey = strings.TrimSpace(os.Getenv("S3_SECRET_KEY"))
	cfg.S3.Prefix = strings.TrimSpace(os.Getenv("S3_PREFIX"))
	cfg.S3.UsePathStyle = parseBool(os.Getenv("S3_USE_PATH_STYLE"))
	cfg.S3.TLSInsecureSkipVerify = parseBool(os.Getenv("S3_TLS_INSECURE_SKIP_VERIFY"))
	cfg.S3.SASTokenExpirationDays = parseIntOr(os.Getenv("SAS_TOKEN_EXPIRATION_DAYS"), 7)

	cfg.OTel.Endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.OTel.ServiceName = strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	cfg.OTel.ServiceVersion = strings.TrimSpace(os.Getenv("OTEL_SERVICE_VERSION"))
	cfg.OTel.Environment = strings.TrimSpace(os.Getenv("OTEL_ENVIRONMENT"))
	cfg.OTel.Insecure = parseBool(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"))

	cfg.StreamBufferSize = parseIntOr(os.Getenv("STREAM_BUFFER_SIZE"), 5)
	cfg.DefaultOrchestration = strings.TrimSpace(os.Getenv("ORCHESTRATION_TYPE"))

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "memory"
	}
	if cfg.Search.Qdrant.Metric == "" {
		cfg.Search.Qdrant.Metric = "cosine"
	}
	if cfg.Search.Postgres.VectorMetric == "" {
		cfg.Search.Postgres.VectorMetric = "cosine"
	}
	if cfg.Embedding.Path == "" {
		cfg.Embedding.Path = "/v1/embeddings"
	}
	if cfg.Embedding.APIHeader == "" {
		cfg.Embedding.APIHeader = "Authorization"
	}
	if cfg.S3.SASTokenExpirationDays <= 0 {
		cfg.S3.SASTokenExpirationDays = 7
	}
	if cfg.StreamBufferSize <= 0 {
		cfg.StreamBufferSize = 5
	}
	if cfg.DefaultOrchestration == "" {
		cfg.DefaultOrchestration = "concurrent"
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "reportability-engine"
	}
	if cfg.OTel.ServiceVersion == "" {
		cfg.OTel.ServiceVersion = "dev"
	}
	if cfg.OTel.Environment == "" {
		cfg.OTel.Environment = "development"
	}
}

func parseIntOr(v string, def int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseBool(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}
