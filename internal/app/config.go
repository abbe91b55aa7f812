package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/client"
	"github.com/spetersoncode/concierge/horoscope"
	"github.com/spetersoncode/concierge/retrieval"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Retriever kinds.
const (
	RetrieverMemory = "memory"
	RetrieverQdrant = "qdrant"
)

// Config holds the concierge configuration loaded from environment variables.
type Config struct {
	// Server
	Port     string
	LogLevel string // debug, info, warn, error

	// Provider selection
	Provider          string
	Model             string
	EmbeddingProvider string
	EmbeddingModel    string

	// API Keys
	AnthropicKey string
	OpenAIKey    string
	GoogleKey    string

	// Vertex AI (uses ADC for auth)
	VertexProject  string
	VertexLocation string

	// Storage
	Store      string // memory, sqlite, redis
	SQLitePath string
	RedisAddr  string
	RedisTTL   time.Duration

	// Catalog and routing
	CatalogPath      string
	RoutingTablePath string

	// Product retrieval
	Retriever        string // memory, qdrant
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantCollection string

	// Horoscope lookups, disabled when empty
	HoroscopeURL string

	// Workflow behaviour
	StepTimeout time.Duration
	SearchLimit int
	ChunkSize   int
	TypingDelay time.Duration
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := &Config{
		Port:              getEnvOrDefault("CONCIERGE_PORT", "8000"),
		LogLevel:          getEnvOrDefault("CONCIERGE_LOG_LEVEL", "info"),
		Provider:          os.Getenv("CONCIERGE_PROVIDER"),
		Model:             os.Getenv("CONCIERGE_MODEL"),
		EmbeddingProvider: getEnvOrDefault("CONCIERGE_EMBEDDING_PROVIDER", string(concierge.ProviderOpenAI)),
		EmbeddingModel:    os.Getenv("CONCIERGE_EMBEDDING_MODEL"),
		AnthropicKey:      os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		GoogleKey:         os.Getenv("GOOGLE_API_KEY"),
		VertexProject:     os.Getenv("VERTEX_PROJECT"),
		VertexLocation:    os.Getenv("VERTEX_LOCATION"),
		Store:             getEnvOrDefault("CONCIERGE_STORE", StoreMemory),
		SQLitePath:        getEnvOrDefault("CONCIERGE_SQLITE_PATH", "concierge.db"),
		RedisAddr:         getEnvOrDefault("CONCIERGE_REDIS_ADDR", "localhost:6379"),
		RedisTTL:          getEnvDurationOrDefault("CONCIERGE_REDIS_TTL", 0),
		CatalogPath:       os.Getenv("CONCIERGE_CATALOG"),
		RoutingTablePath:  os.Getenv("CONCIERGE_ROUTING_TABLE"),
		Retriever:         getEnvOrDefault("CONCIERGE_RETRIEVER", RetrieverMemory),
		QdrantHost:        getEnvOrDefault("QDRANT_HOST", "localhost"),
		QdrantPort:        getEnvIntOrDefault("QDRANT_PORT", 6334),
		QdrantAPIKey:      os.Getenv("QDRANT_API_KEY"),
		QdrantCollection:  getEnvOrDefault("QDRANT_COLLECTION", retrieval.DefaultCollection),
		HoroscopeURL:      getEnvOrDefault("CONCIERGE_HOROSCOPE_URL", horoscope.DefaultBaseURL),
		StepTimeout:       getEnvDurationOrDefault("CONCIERGE_STEP_TIMEOUT", time.Minute),
		SearchLimit:       getEnvIntOrDefault("CONCIERGE_SEARCH_LIMIT", 5),
		ChunkSize:         getEnvIntOrDefault("CONCIERGE_CHUNK_SIZE", 3),
		TypingDelay:       getEnvDurationOrDefault("CONCIERGE_TYPING_DELAY", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("CONCIERGE_PROVIDER is required (anthropic, openai, google, or vertex)")
	}
	if err := c.checkCredentials(c.Provider); err != nil {
		return err
	}

	if !client.Supports(concierge.Provider(c.EmbeddingProvider), client.FeatureEmbedding) {
		return fmt.Errorf("embedding provider %s cannot embed (must be openai, google, or vertex)", c.EmbeddingProvider)
	}
	if err := c.checkCredentials(c.EmbeddingProvider); err != nil {
		return err
	}

	switch c.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store: %s (must be memory, sqlite, or redis)", c.Store)
	}

	switch c.Retriever {
	case "", RetrieverMemory:
	case RetrieverQdrant:
		if c.QdrantHost == "" || c.QdrantPort <= 0 {
			return fmt.Errorf("QDRANT_HOST and QDRANT_PORT are required for the qdrant retriever")
		}
	default:
		return fmt.Errorf("unknown retriever: %s (must be memory or qdrant)", c.Retriever)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CONCIERGE_CHUNK_SIZE must be positive")
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

func (c *Config) checkCredentials(provider string) error {
	switch provider {
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for anthropic provider")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai provider")
		}
	case "google":
		if c.GoogleKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for google provider")
		}
	case "vertex":
		if c.VertexProject == "" || c.VertexLocation == "" {
			return fmt.Errorf("VERTEX_PROJECT and VERTEX_LOCATION are required for vertex provider")
		}
	default:
		return fmt.Errorf("unknown provider: %s (must be anthropic, openai, google, or vertex)", provider)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid CONCIERGE_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
