package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EMBED_LLM_MODEL", "nomic-embed-text")
	t.Setenv("CHAT_LLM_MODEL", "llama3.1")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.RAG)
	}
	if cfg.RAG.TopK != 5 || cfg.RAG.UpsertBatch != 50 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.RAG)
	}
	if cfg.EmbedLLM.Provider != "ollama" || cfg.EmbedLLM.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected embed provider defaults: %+v", cfg.EmbedLLM)
	}
	if cfg.EmbedLLM.Dim != 768 {
		t.Errorf("expected default dim 768, got %d", cfg.EmbedLLM.Dim)
	}
	if cfg.Table.SnapTolerance != 3 || cfg.Table.MinRows != 2 {
		t.Errorf("unexpected table defaults: %+v", cfg.Table)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("EMBED_LLM_MODEL", "nomic-embed-text")
	t.Setenv("CHAT_LLM_MODEL", "llama3.1")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
rag:
  chunk_size: 500
  top_k: 3
vectordb:
  collection: custom
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.TopK != 3 {
		t.Errorf("yaml values not applied: %+v", cfg.RAG)
	}
	if cfg.VectorDB.Collection != "custom" {
		t.Errorf("expected collection custom, got %s", cfg.VectorDB.Collection)
	}
}

func TestYAMLSurvivesUnsetEnv(t *testing.T) {
	// Fields with built-in defaults must keep their YAML value when the
	// corresponding environment variable is not set.
	t.Setenv("EMBED_LLM_MODEL", "nomic-embed-text")
	t.Setenv("CHAT_LLM_MODEL", "llama3.1")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
vectordb:
  collection: custom
rag:
  chunk_size: 500
  top_k: 3
table:
  snap_tolerance: 5
ingest:
  data_dir: /srv/docs
embed_llm:
  dim: 1024
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.VectorDB.Collection != "custom" {
		t.Errorf("expected collection custom, got %s", cfg.VectorDB.Collection)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.TopK != 3 {
		t.Errorf("yaml values reset to defaults: %+v", cfg.RAG)
	}
	if cfg.Table.SnapTolerance != 5 {
		t.Errorf("expected snap tolerance 5, got %f", cfg.Table.SnapTolerance)
	}
	if cfg.Ingest.DataDir != "/srv/docs" {
		t.Errorf("expected data dir /srv/docs, got %s", cfg.Ingest.DataDir)
	}
	if cfg.EmbedLLM.Dim != 1024 {
		t.Errorf("expected dim 1024, got %d", cfg.EmbedLLM.Dim)
	}
	// Untouched fields keep their defaults.
	if cfg.RAG.UpsertBatch != 50 || cfg.Database.Path != "policy_rag.db" {
		t.Errorf("defaults lost for fields absent from yaml: %+v %+v", cfg.RAG, cfg.Database)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("EMBED_LLM_MODEL", "nomic-embed-text")
	t.Setenv("CHAT_LLM_MODEL", "llama3.1")
	t.Setenv("TOP_K", "7")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("rag:\n  top_k: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RAG.TopK != 7 {
		t.Errorf("environment must override yaml, got top_k %d", cfg.RAG.TopK)
	}
}

func TestValidateRejectsOpenAIWithoutKey(t *testing.T) {
	cfg := &Config{
		EmbedLLM: LLMConfig{Provider: "openai", Model: "text-embedding-3-small"},
		ChatLLM:  LLMConfig{Provider: "ollama", Model: "llama3.1"},
		RAG:      RAGConfig{ChunkSize: 1000, ChunkOverlap: 100},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for openai provider without key")
	}
}

func TestValidateRejectsMissingModel(t *testing.T) {
	cfg := &Config{
		EmbedLLM: LLMConfig{Provider: "ollama"},
		ChatLLM:  LLMConfig{Provider: "ollama", Model: "llama3.1"},
		RAG:      RAGConfig{ChunkSize: 1000, ChunkOverlap: 100},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestValidateRejectsBadOverlap(t *testing.T) {
	cfg := &Config{
		EmbedLLM: LLMConfig{Provider: "ollama", Model: "m"},
		ChatLLM:  LLMConfig{Provider: "ollama", Model: "m"},
		RAG:      RAGConfig{ChunkSize: 100, ChunkOverlap: 100},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := &Config{
		EmbedLLM: LLMConfig{Provider: "bedrock", Model: "m"},
		ChatLLM:  LLMConfig{Provider: "ollama", Model: "m"},
		RAG:      RAGConfig{ChunkSize: 1000, ChunkOverlap: 100},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
