// Package config loads loreseek configuration from a YAML file with
// LORESEEK_* environment overrides, in the order: defaults, file, env.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Server modes.
const (
	ModeMCP    = "mcp"
	ModeREST   = "rest"
	ModeOpenAI = "openai"
	ModeAll    = "all"
)

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "voyage", "openai", or "fake".
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	BatchSize   int    `mapstructure:"batch_size"`
	RateLimitMs int    `mapstructure:"rate_limit_ms"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "sqlite" or "memory".
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
}

// ServerConfig controls which adapters run and where they listen.
type ServerConfig struct {
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OpenAIConfig configures the upstream model behind the
// OpenAI-compatible adapter.
type OpenAIConfig struct {
	UpstreamBaseURL string `mapstructure:"upstream_base_url"`
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
}

// SearchConfig holds cross-tool retrieval options.
type SearchConfig struct {
	// Hybrid merges keyword matches from the lexical index into
	// vector search results.
	Hybrid bool `mapstructure:"hybrid"`
}

// LexicalConfig locates the keyword index used by hybrid search.
type LexicalConfig struct {
	Path string `mapstructure:"path"`
}

// TablesConfig names the per-domain vector tables.
type TablesConfig struct {
	Code       string `mapstructure:"code"`
	ClientCode string `mapstructure:"client_code"`
	Gamedata   string `mapstructure:"gamedata"`
	Docs       string `mapstructure:"docs"`
}

// Config is the process-wide configuration, immutable after Load.
type Config struct {
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore"`
	Server      ServerConfig      `mapstructure:"server"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Search      SearchConfig      `mapstructure:"search"`
	Lexical     LexicalConfig     `mapstructure:"lexical"`
	Tables      TablesConfig      `mapstructure:"tables"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "voyage")
	v.SetDefault("embedding.batch_size", 128)
	v.SetDefault("embedding.rate_limit_ms", 200)
	v.SetDefault("vectorstore.provider", "sqlite")
	v.SetDefault("vectorstore.path", "loreseek.db")
	v.SetDefault("server.mode", ModeMCP)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8700)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("search.hybrid", false)
	v.SetDefault("lexical.path", "loreseek-lexical")
	v.SetDefault("tables.code", "code")
	v.SetDefault("tables.client_code", "client_code")
	v.SetDefault("tables.gamedata", "gamedata")
	v.SetDefault("tables.docs", "docs")
}

// Load reads configuration. path points at an explicit config file;
// when empty, loreseek.yaml in the working directory is used if
// present. Environment variables win, e.g. LORESEEK_EMBEDDING_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LORESEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("loreseek")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated options and ranges.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeMCP, ModeREST, ModeOpenAI, ModeAll:
	default:
		return fmt.Errorf("invalid server.mode %q (want mcp, rest, openai, or all)", c.Server.Mode)
	}

	switch c.Embedding.Provider {
	case "voyage", "openai", "fake":
	default:
		return fmt.Errorf("invalid embedding.provider %q (want voyage, openai, or fake)", c.Embedding.Provider)
	}

	switch c.VectorStore.Provider {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid vectorstore.provider %q (want sqlite or memory)", c.VectorStore.Provider)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// EmbeddingConfigError describes why the embedding provider cannot be
// constructed, or "" when it can. MCP mode defers this to per-request
// errors; the HTTP modes refuse to start.
func (c *Config) EmbeddingConfigError() string {
	switch c.Embedding.Provider {
	case "voyage", "openai":
		if strings.TrimSpace(c.Embedding.APIKey) == "" {
			return fmt.Sprintf(
				"embedding provider %q requires an API key; set embedding.api_key or LORESEEK_EMBEDDING_API_KEY",
				c.Embedding.Provider)
		}
	}
	return ""
}
