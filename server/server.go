// Package server hosts the protocol adapters: MCP over stdio, REST,
// and an OpenAI-compatible chat endpoint. Every adapter dispatches
// through the same tool registry, so a given tool invocation behaves
// identically regardless of which protocol carried it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loreseek/loreseek/config"
	"github.com/loreseek/loreseek/logger"
	"github.com/loreseek/loreseek/tool"
)

// Name and Version identify this server to MCP clients.
const (
	Name    = "loreseek"
	Version = "0.1.0"
)

// shutdownTimeout bounds the drain of in-flight HTTP requests.
const shutdownTimeout = 10 * time.Second

// Server runs the adapters selected by the configured mode.
type Server struct {
	reg *tool.Registry
	tc  *tool.Context
	cfg *config.Config

	httpSrv *http.Server
}

// New builds a server over the registry and shared tool context.
func New(reg *tool.Registry, tc *tool.Context, cfg *config.Config) *Server {
	return &Server{reg: reg, tc: tc, cfg: cfg}
}

// Run starts the configured adapters and blocks until ctx is cancelled
// or a transport fails. MCP mode owns the stdio pair exclusively; the
// HTTP modes share one listener.
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Server.Mode {
	case config.ModeMCP:
		logger.Infow("serving MCP over stdio", "tools", len(s.reg.List()))
		mcpSrv := NewMCPServer(s.reg, s.tc, Name, Version)
		return mcpSrv.ServeStdio(ctx, os.Stdin, os.Stdout)
	case config.ModeREST, config.ModeOpenAI, config.ModeAll:
		return s.runHTTP(ctx)
	default:
		return fmt.Errorf("unknown server mode %q", s.cfg.Server.Mode)
	}
}

// handler assembles the HTTP surface for the configured mode.
func (s *Server) handler() http.Handler {
	r := chi.NewRouter()

	mode := s.cfg.Server.Mode
	if mode == config.ModeREST || mode == config.ModeAll {
		r.Mount("/", RESTHandler(s.reg, s.tc))
	}
	if mode == config.ModeOpenAI || mode == config.ModeAll {
		openaiSrv := NewOpenAIServer(s.reg, s.tc,
			s.cfg.OpenAI.APIKey, s.cfg.OpenAI.UpstreamBaseURL, s.cfg.OpenAI.Model)
		r.Handle("/v1/chat/completions", openaiSrv.Handler())
	}
	return r
}

func (s *Server) runHTTP(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, fmt.Sprintf("%d", s.cfg.Server.Port))
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("serving HTTP", "addr", addr, "mode", s.cfg.Server.Mode)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		logger.Info("stopped")
		return nil
	}
}
