package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database    DatabaseConfig    `json:"database"`
	JWTSecret   string            `json:"jwt_secret"`
	Port        int               `json:"port"`
	JWTTTLHours int               `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	FileStore   FileStoreConfig   `json:"file_store"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	AI          AIConfig          `json:"ai"`
	Ingestion   IngestionConfig   `json:"ingestion"`
	Memory      MemoryConfig      `json:"memory"`
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

type FileStoreConfig struct {
	Type      string   `json:"type"`
	Dir       string   `json:"dir"`
	PublicURL string   `json:"public_url"`
	S3        S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PublicURL string `json:"public_url"`
	UseSSL    bool   `json:"use_ssl"`
}

// VectorStoreConfig addresses the Qdrant collection host used by the
// vector store gateway.
type VectorStoreConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	APIKey string `json:"api_key"`
	UseTLS bool   `json:"use_tls"`
}

// AIConfig carries provider selection and the per-provider credentials
// and model names recognized from the environment (RAG_CHUNK_SIZE and
// friends live in IngestionConfig rather than here because they govern
// the splitter/retrieval path, not the model call itself).
type AIConfig struct {
	ChatProvider  string `json:"chat_provider"`
	EmbedProvider string `json:"embed_provider"`

	OpenAIAPIKey         string `json:"openai_api_key"`
	OpenAIBaseURL        string `json:"openai_base_url"`
	OpenAIEmbeddingModel string `json:"openai_embedding_model"`
	OpenAIChatModel      string `json:"openai_chat_model"`
	OpenAIMaxTokens      int    `json:"openai_max_tokens"`

	GeminiAPIKey    string `json:"gemini_api_key"`
	GeminiEmbedModel string `json:"gemini_embed_model"`
	GeminiChatModel string `json:"gemini_chat_model"`

	EmbeddingDimension int `json:"embedding_dimension"`
}

// IngestionConfig governs the Text Splitter and RAG Query Engine's
// retrieval knobs (§6: RAG_CHUNK_SIZE, RAG_CHUNK_OVERLAP, RAG_MAX_CHUNKS,
// RAG_SIMILARITY_THRESHOLD).
type IngestionConfig struct {
	ChunkSize           int     `json:"chunk_size"`
	ChunkOverlap        int     `json:"chunk_overlap"`
	MaxChunks           int     `json:"max_chunks"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// MemoryConfig governs the Memory Manager's buffer/hybrid selection
// thresholds (§6: MEMORY_MAX_TOKENS, MEMORY_MAX_MESSAGES,
// MEMORY_SUMMARY_THRESHOLD, MEMORY_ENTITY_THRESHOLD).
type MemoryConfig struct {
	MaxTokens         int `json:"max_tokens"`
	MaxMessages       int `json:"max_messages"`
	SummaryThreshold  int `json:"summary_threshold"`
	EntityThreshold   int `json:"entity_threshold"`
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
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets the environment keys named in §6 win over
// whatever the config file set, without requiring every deployment to
// edit the file for a single knob.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAG_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingestion.ChunkSize = n
		}
	}
	if v := os.Getenv("RAG_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingestion.ChunkOverlap = n
		}
	}
	if v := os.Getenv("RAG_MAX_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingestion.MaxChunks = n
		}
	}
	if v := os.Getenv("RAG_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ingestion.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("OPENAI_EMBEDDING_MODEL"); v != "" {
		cfg.AI.OpenAIEmbeddingModel = v
	}
	if v := os.Getenv("OPENAI_CHAT_MODEL"); v != "" {
		cfg.AI.OpenAIChatModel = v
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AI.OpenAIMaxTokens = n
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("MEMORY_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Memory.MaxTokens = n
		}
	}
	if v := os.Getenv("MEMORY_MAX_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Memory.MaxMessages = n
		}
	}
	if v := os.Getenv("MEMORY_SUMMARY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Memory.SummaryThreshold = n
		}
	}
	if v := os.Getenv("MEMORY_ENTITY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Memory.EntityThreshold = n
		}
	}
	if v := os.Getenv("VECTOR_STORE_HOST"); v != "" {
		cfg.VectorStore.Host = v
	}
	if v := os.Getenv("VECTOR_STORE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VectorStore.Port = n
		}
	}
	if v := os.Getenv("VECTOR_STORE_API_KEY"); v != "" {
		cfg.VectorStore.APIKey = v
	}
}

func validate(cfg *Config) error {
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			return fmt.Errorf("file_store.dir is required for local store")
		}
	case "s3":
		if cfg.FileStore.S3.Endpoint == "" || cfg.FileStore.S3.Bucket == "" || cfg.FileStore.S3.SecretID == "" || cfg.FileStore.S3.SecretKey == "" {
			return fmt.Errorf("file_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store")
		}
		if cfg.FileStore.S3.Region == "" {
			cfg.FileStore.S3.Region = "cn"
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.VectorStore.Host == "" {
		cfg.VectorStore.Host = "localhost"
	}
	if cfg.VectorStore.Port == 0 {
		cfg.VectorStore.Port = 6334
	}
	if cfg.AI.ChatProvider == "" {
		cfg.AI.ChatProvider = "openai"
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = "openai"
	}
	if cfg.AI.OpenAIMaxTokens == 0 {
		cfg.AI.OpenAIMaxTokens = 4000
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 1000
	}
	if cfg.Ingestion.ChunkOverlap == 0 {
		cfg.Ingestion.ChunkOverlap = 200
	}
	if cfg.Ingestion.MaxChunks == 0 {
		cfg.Ingestion.MaxChunks = 5
	}
	if cfg.Ingestion.SimilarityThreshold == 0 {
		cfg.Ingestion.SimilarityThreshold = 0.4
	}
	if cfg.Memory.MaxTokens == 0 {
		cfg.Memory.MaxTokens = 1500
	}
	if cfg.Memory.MaxMessages == 0 {
		cfg.Memory.MaxMessages = 20
	}
	if cfg.Memory.SummaryThreshold == 0 {
		cfg.Memory.SummaryThreshold = 10
	}
	if cfg.Memory.EntityThreshold == 0 {
		cfg.Memory.EntityThreshold = 2
	}
	return nil
}
