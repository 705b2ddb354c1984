package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// LLMConfig describes one model endpoint. Provider selects the client
// implementation: "ollama" or "openai" (any OpenAI-compatible server).
type LLMConfig struct {
	Provider string `yaml:"provider" env:"PROVIDER"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	Model    string `yaml:"model" env:"MODEL"`
	Key      string `yaml:"key" env:"KEY"`
	// Dim is the embedding vector dimension; only meaningful for embed_llm.
	Dim int `yaml:"dim" env:"DIM"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"HTTP_PORT"`
}

type DatabaseConfig struct {
	Path  string `yaml:"path" env:"DATABASE_PATH"`
	Debug bool   `yaml:"debug" env:"DATABASE_DEBUG"`
}

type VectorDBConfig struct {
	Path       string `yaml:"path" env:"VECTORDB_PATH"`
	Collection string `yaml:"collection" env:"VECTORDB_COLLECTION"`
	InMemory   bool   `yaml:"in_memory" env:"VECTORDB_IN_MEMORY"`
}

type RAGConfig struct {
	ChunkSize      int `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap   int `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	TopK           int `yaml:"top_k" env:"TOP_K"`
	MaxContextDocs int `yaml:"max_context_docs" env:"MAX_CONTEXT_DOCS"`
	HistoryTurns   int `yaml:"history_turns" env:"HISTORY_TURNS"`
	UpsertBatch    int `yaml:"upsert_batch" env:"UPSERT_BATCH"`
}

type IngestConfig struct {
	DataDir         string `yaml:"data_dir" env:"DATA_DIR"`
	IntervalSeconds int    `yaml:"interval_seconds" env:"CHECK_INTERVAL"`
	ReformatTables  bool   `yaml:"reformat_tables" env:"REFORMAT_TABLES"`
}

// TableConfig holds the table-detection geometry constants. Tolerances are
// in PDF points.
type TableConfig struct {
	SnapTolerance float64 `yaml:"snap_tolerance" env:"TABLE_SNAP_TOLERANCE"`
	JoinTolerance float64 `yaml:"join_tolerance" env:"TABLE_JOIN_TOLERANCE"`
	MinRows       int     `yaml:"min_rows" env:"TABLE_MIN_ROWS"`
	MinCols       int     `yaml:"min_cols" env:"TABLE_MIN_COLS"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database"`
	VectorDB VectorDBConfig `yaml:"vectordb"`
	EmbedLLM LLMConfig      `yaml:"embed_llm" envPrefix:"EMBED_LLM_"`
	ChatLLM  LLMConfig      `yaml:"chat_llm" envPrefix:"CHAT_LLM_"`
	RAG      RAGConfig      `yaml:"rag"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Table    TableConfig    `yaml:"table"`
}

// defaultConfig is the base layer of the configuration. YAML values overlay
// it, environment variables overlay both, so env.Parse must only write
// fields whose variable is actually set (no envDefault tags).
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Path: "policy_rag.db",
		},
		VectorDB: VectorDBConfig{
			Path:       "./chromemdb",
			Collection: "finance-policy",
		},
		EmbedLLM: LLMConfig{Dim: 768},
		RAG: RAGConfig{
			ChunkSize:      1000,
			ChunkOverlap:   100,
			TopK:           5,
			MaxContextDocs: 10,
			HistoryTurns:   6,
			UpsertBatch:    50,
		},
		Ingest: IngestConfig{
			DataDir:         "./data",
			IntervalSeconds: 10,
		},
		Table: TableConfig{
			SnapTolerance: 3,
			JoinTolerance: 3,
			MinRows:       2,
			MinCols:       2,
		},
	}
}

// Load layers the configuration: built-in defaults, then the YAML file,
// then environment variables. A missing file is not an error; environment
// variables alone can configure the service.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on missing provider settings so that credential
// problems surface at process start, not per request.
func (c *Config) Validate() error {
	if err := validateLLM("embed_llm", &c.EmbedLLM); err != nil {
		return err
	}
	if err := validateLLM("chat_llm", &c.ChatLLM); err != nil {
		return err
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be > 0")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size)")
	}
	return nil
}

func validateLLM(name string, lc *LLMConfig) error {
	if lc.Provider == "" {
		lc.Provider = "ollama"
	}
	switch lc.Provider {
	case "ollama":
		if lc.BaseURL == "" {
			lc.BaseURL = "http://localhost:11434"
		}
	case "openai":
		if lc.Key == "" {
			return fmt.Errorf("%s.key is required for the openai provider", name)
		}
	default:
		return fmt.Errorf("%s.provider must be \"ollama\" or \"openai\", got %q", name, lc.Provider)
	}
	if lc.Model == "" {
		return fmt.Errorf("%s.model is required", name)
	}
	return nil
}
