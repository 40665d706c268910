package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Mode != ModeMCP {
		t.Errorf("expected default mode mcp, got %s", cfg.Server.Mode)
	}
	if cfg.Embedding.BatchSize != 128 {
		t.Errorf("expected default batch size 128, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Tables.Docs != "docs" {
		t.Errorf("expected default docs table, got %s", cfg.Tables.Docs)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loreseek.yaml")
	contents := `
server:
  mode: rest
  port: 9000
embedding:
  provider: fake
vectorstore:
  provider: memory
tables:
  code: hytale_code
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Mode != ModeREST || cfg.Server.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg.Server)
	}
	if cfg.Tables.Code != "hytale_code" {
		t.Errorf("expected table override, got %s", cfg.Tables.Code)
	}
	if cfg.Tables.Gamedata != "gamedata" {
		t.Errorf("expected default for unset table, got %s", cfg.Tables.Gamedata)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LORESEEK_SERVER_MODE", "openai")
	t.Setenv("LORESEEK_EMBEDDING_PROVIDER", "fake")
	t.Setenv("LORESEEK_VECTORSTORE_PROVIDER", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Mode != ModeOpenAI {
		t.Errorf("expected env override openai, got %s", cfg.Server.Mode)
	}
	if cfg.Embedding.Provider != "fake" {
		t.Errorf("expected env override fake, got %s", cfg.Embedding.Provider)
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Server.Mode = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid mode to be rejected")
	}

	cfg = base()
	cfg.Embedding.Provider = "psychic"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid embedding provider to be rejected")
	}

	cfg = base()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid port to be rejected")
	}
}

func TestEmbeddingConfigError(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.Embedding.Provider = "voyage"
	cfg.Embedding.APIKey = ""
	if msg := cfg.EmbeddingConfigError(); msg == "" {
		t.Error("expected config error for missing voyage key")
	}

	cfg.Embedding.APIKey = "vk-test"
	if msg := cfg.EmbeddingConfigError(); msg != "" {
		t.Errorf("unexpected config error: %s", msg)
	}

	cfg.Embedding.Provider = "fake"
	cfg.Embedding.APIKey = ""
	if msg := cfg.EmbeddingConfigError(); msg != "" {
		t.Errorf("fake provider needs no key, got: %s", msg)
	}
}
