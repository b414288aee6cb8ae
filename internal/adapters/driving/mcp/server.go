package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

const (
	serverName      = "deep-researcher"
	shutdownTimeout = 5 * time.Second

	instructions = `Answers questions from a local document collection.
Use "search" to fetch passages, "research" for a cited answer built over
several retrieval rounds, and "history" to read earlier turns of a session.
Pass the same session_id to "research" to ask follow-up questions.`
)

// Server exposes the researcher to MCP clients.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the tools and resources. A zero Research config in
// ports is replaced by the defaults.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("mcp: %w", err)
	}
	if ports.Research == (domain.ResearchConfig{}) {
		ports.Research = domain.DefaultResearchConfig()
	}
	version := ports.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: serverName, Version: version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Serve speaks MCP over stdio when addr is empty and over streamable HTTP
// on addr otherwise. It returns when ctx is cancelled or the transport fails.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		logger.Debug("MCP server on stdio")
		return s.server.Run(ctx, &mcp.StdioTransport{})
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Debug("MCP server on http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handler routes /mcp to the protocol and /healthz to a liveness probe.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
