// Package config loads the service configuration from the environment.
// Components receive config structs; nothing else reads env vars directly.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Backend    BackendConfig
	RAG        RAGConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Mode         string // "debug" or "release"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConnections int
	ConnTimeout    time.Duration
}

type AuthConfig struct {
	ServiceURL string
	Enabled    bool
}

// BackendConfig wires the hot-swappable provider layer. When ConfigServiceURL
// is set, reloads pull the active backend from that service; otherwise the
// static env-var configuration below is the only source.
type BackendConfig struct {
	ConfigServiceURL    string
	Provider            string
	Endpoint            string
	APIKey              string
	ModelName           string
	EmbeddingEndpoint   string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingDimension  int
	AllowMockEmbeddings bool
}

type RAGConfig struct {
	ChunkSize           int
	ChunkOverlap        float64
	RetrievalLimit      int
	ScoreThreshold      float64
	MaxContextLength    int
	MaxContextDocuments int
	IngestConcurrency   int
	DefaultMaxTokens    int
	DefaultTemperature  float64
}

type MonitoringConfig struct {
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string // "json" or "text"
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8004"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getDurationEnv("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 120*time.Second),
			EnableCORS:   getBoolEnv("CORS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "ragserver"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "ragserver_db"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getIntEnv("DB_MAX_CONNECTIONS", 20),
			ConnTimeout:    getDurationEnv("DB_CONN_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			ServiceURL: getEnv("AUTH_SERVICE_URL", "http://localhost:8001"),
			Enabled:    getBoolEnv("AUTH_ENABLED", true),
		},
		Backend: BackendConfig{
			ConfigServiceURL:    getEnv("CONFIG_SERVICE_URL", ""),
			Provider:            getEnv("BACKEND_PROVIDER", "bedrock"),
			Endpoint:            getEnv("BACKEND_ENDPOINT", "http://localhost:8003"),
			APIKey:              getEnv("BACKEND_API_KEY", ""),
			ModelName:           getEnv("BACKEND_MODEL", ""),
			EmbeddingEndpoint:   getEnv("EMBEDDING_ENDPOINT", "http://localhost:8003"),
			EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
			EmbeddingDimension:  getIntEnv("EMBEDDING_DIMENSION", 1536),
			AllowMockEmbeddings: getBoolEnv("BACKEND_ALLOW_MOCK_EMBEDDINGS", false),
		},
		RAG: RAGConfig{
			ChunkSize:           getIntEnv("CHUNK_SIZE", 1000),
			ChunkOverlap:        getFloatEnv("CHUNK_OVERLAP", 0.25),
			RetrievalLimit:      getIntEnv("RETRIEVAL_LIMIT", 10),
			ScoreThreshold:      getFloatEnv("SCORE_THRESHOLD", 0.0),
			MaxContextLength:    getIntEnv("MAX_CONTEXT_LENGTH", 8000),
			MaxContextDocuments: getIntEnv("MAX_CONTEXT_DOCUMENTS", 10),
			IngestConcurrency:   getIntEnv("INGEST_CONCURRENCY", 4),
			DefaultMaxTokens:    getIntEnv("DEFAULT_MAX_TOKENS", 1000),
			DefaultTemperature:  getFloatEnv("DEFAULT_TEMPERATURE", 0.7),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
