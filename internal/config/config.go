package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type VectorBackend string
type EmbeddingBackend string
type ConversationBackend string

const (
	VectorQdrant VectorBackend = "qdrant"
	VectorMemory VectorBackend = "memory"

	EmbeddingGoogle      EmbeddingBackend = "google"
	EmbeddingOpenAI      EmbeddingBackend = "openai"
	EmbeddingPlaceholder EmbeddingBackend = "placeholder"

	ConversationSQLite ConversationBackend = "sqlite"
	ConversationRedis  ConversationBackend = "redis"
	ConversationMemory ConversationBackend = "memory"
)

// older .env templates shipped this value in place of a real key
const dummyAPIKey = "dummy_key_for_testing"

type VectorConfig struct {
	Backend       VectorBackend `yaml:"backend"`
	QdrantHost    string        `yaml:"qdrant_host"`
	QdrantPort    int           `yaml:"qdrant_port"`
	QdrantAPIKey  string        `yaml:"-"`
	Collection    string        `yaml:"collection"`
	SemanticCache bool          `yaml:"semantic_cache"`
}

type EmbeddingConfig struct {
	Backend   EmbeddingBackend `yaml:"backend"`
	Model     string           `yaml:"model"`
	Dimension int32            `yaml:"dimension"`
	Timeout   time.Duration    `yaml:"timeout"`
}

type LLMConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	DefaultModel string        `yaml:"default_model"`
}

type ConversationConfig struct {
	Backend       ConversationBackend `yaml:"backend"`
	RedisAddr     string              `yaml:"redis_addr"`
	RedisPassword string              `yaml:"-"`
	TTL           time.Duration       `yaml:"ttl"`
}

type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	K             int `yaml:"k"`
	HistoryWindow int `yaml:"history_window"`
}

// Config is resolved once at startup and passed down explicitly.
type Config struct {
	IsProd       bool   `yaml:"is_prod"`
	LogLevel     string `yaml:"log_level"`
	ListenAddr   string `yaml:"listen_addr"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
	RateLimit    bool   `yaml:"rate_limit"`
	DataDir      string `yaml:"data_dir"`
	SQLitePath   string `yaml:"sqlite_path"`
	UploadDir    string `yaml:"upload_dir"`

	Vector       VectorConfig       `yaml:"vector"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	LLM          LLMConfig          `yaml:"llm"`
	Conversation ConversationConfig `yaml:"conversation"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`

	// secrets only come from the environment
	AuthToken    string `yaml:"-"`
	GoogleAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`

	// Fallbacks lists the backend downgrades Resolve applied
	Fallbacks []string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		LogLevel:   "debug",
		ListenAddr: ServerListenAddr,
		RateLimit:  true,
		DataDir:    "data",
		Vector: VectorConfig{
			Backend:    VectorQdrant,
			QdrantHost: QdrantHost,
			QdrantPort: QdrantGrpcPort,
			Collection: EmbeddingDBName,
		},
		Embedding: EmbeddingConfig{
			Backend:   EmbeddingGoogle,
			Dimension: EmbeddingOutputDimensionality,
			Timeout:   DefaultEmbeddingTimeout,
		},
		LLM: LLMConfig{
			Timeout:      DefaultLLMTimeout,
			DefaultModel: GeminiFlashLiteModel,
		},
		Conversation: ConversationConfig{
			Backend:   ConversationSQLite,
			RedisAddr: RedisAddr,
			TTL:       RedisMessageStoreTTL,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			K:             DefaultRetrieverK,
			HistoryWindow: DefaultHistoryWindow,
		},
	}
}

// Load reads .env, then the optional YAML file at path, then the process
// environment, and resolves the result.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "RAG_LISTEN_ADDR")
	setString(&cfg.LogLevel, "RAG_LOG_LEVEL")
	setBool(&cfg.IsProd, "RAG_IS_PROD")
	setBool(&cfg.NoAuthBypass, "RAG_NO_AUTH_BYPASS")
	setBool(&cfg.RateLimit, "RAG_RATE_LIMIT")
	setString(&cfg.DataDir, "RAG_DATA_DIR")
	setString(&cfg.SQLitePath, "RAG_SQLITE_PATH")
	setString(&cfg.UploadDir, "RAG_UPLOAD_DIR")

	setString((*string)(&cfg.Vector.Backend), "RAG_VECTOR_BACKEND")
	setString(&cfg.Vector.QdrantHost, "QDRANT_HOST")
	setInt(&cfg.Vector.QdrantPort, "QDRANT_PORT")
	setString(&cfg.Vector.QdrantAPIKey, "QDRANT_API_KEY")
	setBool(&cfg.Vector.SemanticCache, "RAG_SEMANTIC_CACHE")

	setString((*string)(&cfg.Embedding.Backend), "RAG_EMBEDDING_BACKEND")
	setString(&cfg.Embedding.Model, "RAG_EMBEDDING_MODEL")

	setString((*string)(&cfg.Conversation.Backend), "RAG_CONVERSATION_BACKEND")
	setString(&cfg.Conversation.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Conversation.RedisPassword, "REDIS_PASSWORD")

	setInt(&cfg.Chunking.ChunkSize, "RAG_CHUNK_SIZE")
	setInt(&cfg.Chunking.ChunkOverlap, "RAG_CHUNK_OVERLAP")
	setInt(&cfg.Retrieval.K, "RAG_RETRIEVER_K")

	setString(&cfg.AuthToken, "API_AUTH_TOKEN")
	setString(&cfg.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
}

// Resolve validates the config and settles backend choices. Without a
// credential the embedding backend falls back to the deterministic placeholder.
func (c *Config) Resolve() error {
	if c.Chunking.ChunkSize <= 0 {
		return ragErrors.NewValidationError("chunk_size", "must be positive", nil)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return ragErrors.NewValidationError("chunk_overlap", "must be in [0, chunk_size)", nil)
	}
	if c.Retrieval.K <= 0 {
		return ragErrors.NewValidationError("retrieval.k", "must be positive", nil)
	}

	if c.GoogleAPIKey == dummyAPIKey {
		c.GoogleAPIKey = ""
	}

	switch c.Vector.Backend {
	case VectorQdrant, VectorMemory:
	default:
		return ragErrors.NewValidationError("vector.backend", fmt.Sprintf("unknown backend %q", c.Vector.Backend), nil)
	}
	switch c.Conversation.Backend {
	case ConversationSQLite, ConversationRedis, ConversationMemory:
	default:
		return ragErrors.NewValidationError("conversation.backend", fmt.Sprintf("unknown backend %q", c.Conversation.Backend), nil)
	}

	switch c.Embedding.Backend {
	case EmbeddingGoogle:
		if c.GoogleAPIKey == "" {
			c.fallbackEmbedding("GOOGLE_API_KEY not set")
		} else if c.Embedding.Model == "" {
			c.Embedding.Model = GoogleEmbeddingModel
		}
	case EmbeddingOpenAI:
		if c.OpenAIAPIKey == "" {
			c.fallbackEmbedding("OPENAI_API_KEY not set")
		} else if c.Embedding.Model == "" {
			c.Embedding.Model = OpenAIEmbeddingModel
		}
	case EmbeddingPlaceholder:
		c.Embedding.Dimension = PlaceholderEmbeddingDimension
	default:
		return ragErrors.NewValidationError("embedding.backend", fmt.Sprintf("unknown backend %q", c.Embedding.Backend), nil)
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = EmbeddingOutputDimensionality
	}

	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "rag_app.db")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "temporary_data")
	}
	return nil
}

func (c *Config) fallbackEmbedding(reason string) {
	c.Fallbacks = append(c.Fallbacks, fmt.Sprintf("embedding %s -> %s: %s", c.Embedding.Backend, EmbeddingPlaceholder, reason))
	c.Embedding.Backend = EmbeddingPlaceholder
	c.Embedding.Model = ""
	c.Embedding.Dimension = PlaceholderEmbeddingDimension
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	if c.IsProd && level < LOG_LEVEL_PROD {
		return LOG_LEVEL_PROD
	}
	return level
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
