package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loreseek/loreseek/config"
	"github.com/loreseek/loreseek/embed"
	"github.com/loreseek/loreseek/ingest"
	"github.com/loreseek/loreseek/lexical"
	"github.com/loreseek/loreseek/logger"
	"github.com/loreseek/loreseek/server"
	"github.com/loreseek/loreseek/store"
	"github.com/loreseek/loreseek/tool"
	"github.com/loreseek/loreseek/tools"
)

func rootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "loreseek",
		Short:        "Semantic search server for a game knowledge base",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCommand(&configPath))
	root.AddCommand(ingestCommand(&configPath))
	return root
}

func serveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge base over the configured protocols",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Initialize()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tc, cleanup, err := buildToolContext(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// MCP clients connect before credentials are necessarily in
			// place, so stdio mode starts anyway and reports the
			// problem per request. The HTTP modes refuse to start.
			if tc.ConfigError != "" && cfg.Server.Mode != config.ModeMCP {
				return fmt.Errorf("%s", tc.ConfigError)
			}

			reg := tool.NewRegistry()
			if err := tools.RegisterAll(reg); err != nil {
				return err
			}

			return server.New(reg, tc, cfg).Run(ctx)
		},
	}
}

func ingestCommand(configPath *string) *cobra.Command {
	var table, file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed pre-parsed knowledge chunks into a vector table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Initialize()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if msg := cfg.EmbeddingConfigError(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			tableName, purpose, err := resolveTable(cfg, table)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			embedder, err := buildEmbedder(cfg)
			if err != nil {
				return err
			}
			pipeline := embed.NewPipeline(embedder, embed.PipelineConfig{
				BatchSize: cfg.Embedding.BatchSize,
				RateLimit: time.Duration(cfg.Embedding.RateLimitMs) * time.Millisecond,
			})

			st := buildStore(cfg)
			if err := st.Connect(ctx); err != nil {
				return err
			}
			defer st.Close()

			lex, err := buildLexical(cfg)
			if err != nil {
				return err
			}
			if lex != nil {
				defer lex.Close()
			}

			result, err := ingest.LoadChunksFile(file).Parse(ctx)
			if err != nil {
				return err
			}

			runner := ingest.NewRunner(pipeline, st, lex, purpose)
			return runner.Run(ctx, tableName, result)
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "target table: code, client_code, gamedata, or docs")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the pre-parsed chunk JSON file")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// buildToolContext assembles the shared collaborators for the serving
// path. The returned cleanup closes everything opened here.
func buildToolContext(ctx context.Context, cfg *config.Config) (*tool.Context, func(), error) {
	st := buildStore(cfg)
	if err := st.Connect(ctx); err != nil {
		return nil, nil, err
	}

	configErr := cfg.EmbeddingConfigError()
	var embedder embed.Provider
	if configErr == "" {
		var err error
		embedder, err = buildEmbedder(cfg)
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
	}

	lex, err := buildLexical(cfg)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if lex != nil {
			_ = lex.Close()
		}
		_ = st.Close()
	}

	return &tool.Context{
		Embedder:    embedder,
		Store:       st,
		Lexical:     lex,
		Config:      cfg,
		ConfigError: configErr,
	}, cleanup, nil
}

func buildStore(cfg *config.Config) store.VectorStore {
	if cfg.VectorStore.Provider == "memory" {
		return store.NewMemory()
	}
	return store.NewSQLite(cfg.VectorStore.Path)
}

func buildEmbedder(cfg *config.Config) (embed.Provider, error) {
	switch cfg.Embedding.Provider {
	case "voyage":
		return embed.NewVoyageClient(embed.VoyageConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			CodeModel:  cfg.Embedding.Model,
			ProseModel: cfg.Embedding.Model,
		})
	case "openai":
		return embed.NewOpenAIClient(embed.OpenAIConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
	case "fake":
		return embed.NewFake(embed.DefaultFakeDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func buildLexical(cfg *config.Config) (*lexical.Index, error) {
	if !cfg.Search.Hybrid {
		return nil, nil
	}
	return lexical.Open(cfg.Lexical.Path)
}

// resolveTable maps the ingest --table flag to the configured table
// name and the embedding purpose its content calls for.
func resolveTable(cfg *config.Config, table string) (string, embed.Purpose, error) {
	switch table {
	case "code":
		return cfg.Tables.Code, embed.PurposeCode, nil
	case "client_code":
		return cfg.Tables.ClientCode, embed.PurposeCode, nil
	case "gamedata":
		return cfg.Tables.Gamedata, embed.PurposeProse, nil
	case "docs":
		return cfg.Tables.Docs, embed.PurposeProse, nil
	default:
		return "", "", fmt.Errorf("unknown table %q (want code, client_code, gamedata, or docs)", table)
	}
}
