// Package config defines the service's environment-driven configuration
// surface and loads it at startup.
package config

// OpenAIConfig configures the OpenAI chat-completion adapter.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicConfig configures the Anthropic chat-completion adapter.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LLMConfig selects and configures the active chat-completion provider.
type LLMConfig struct {
	Provider  string // "openai" (default) or "anthropic"
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

// EmbeddingConfig configures the HTTP embedding client used by ingestion.
type EmbeddingConfig struct {
	BaseURL    string
	Path       string
	APIKey     string
	APIHeader  string // header name to carry APIKey, e.g. "Authorization"
	Model      string
	Dimensions int
	Timeout    int // seconds
}

// PostgresConfig configures the Postgres-backed search and vector backends.
type PostgresConfig struct {
	DSN              string
	VectorDimensions int
	VectorMetric     string
}

// QdrantConfig configures the Qdrant-backed vector backend.
type QdrantConfig struct {
	DSN        string
	Collection string
	Dimensions int
	Metric     string
}

// SearchConfig selects and configures the search backend and descriptor file.
type SearchConfig struct {
	Backend    string // "postgres", "qdrant", or "memory" (default)
	ConfigPath string // SEARCH_CONFIG_PATH, YAML index descriptor file
	Postgres   PostgresConfig
	Qdrant     QdrantConfig
}

// S3Config configures the objectstore.S3Store citation-document backend.
type S3Config struct {
	Bucket                 string
	Region                 string
	Endpoint               string
	AccessKey              string
	SecretKey              string
	Prefix                 string
	UsePathStyle           bool
	TLSInsecureSkipVerify  bool
	SASTokenExpirationDays int
}

// OTelConfig configures OpenTelemetry tracing and metrics export.
type OTelConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
	Insecure       bool
}

// Config is the fully resolved configuration for the advisory engine.
type Config struct {
	Host string
	Port int

	LogLevel string
	LogPath  string

	LLM       LLMConfig
	Embedding EmbeddingConfig
	Search    SearchConfig
	S3        S3Config
	OTel      OTelConfig

	StreamBufferSize     int
	DefaultOrchestration string
}
