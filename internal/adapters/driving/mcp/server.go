package mcp

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vigil/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `Vigil grades source code against a security guidance knowledge base.
Call rebuild_knowledge_base once with guidance markdown, then analyze_file
for each Python or JavaScript file. query_guidance shows what the knowledge
base knows about a snippet.`

// Server is the MCP server for vigil.
type Server struct {
	ports  *Ports
	root   string
	server *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRoot confines file reads to dir. Relative tool paths resolve
// against it.
func WithRoot(dir string) Option {
	return func(s *Server) {
		s.root = dir
	}
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "vigil",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.root != "" {
		abs, err := filepath.Abs(s.root)
		if err != nil {
			return nil, fmt.Errorf("resolving root: %w", err)
		}
		s.root = abs
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Debug("mcp: serving on %s", addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
