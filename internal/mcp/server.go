// Package mcp implements a Model Context Protocol server exposing ghinsight
// collection capabilities as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/storage"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "ghinsight"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"
)

// CollectionService runs and prices collections. *collector.Orchestrator
// satisfies it.
type CollectionService interface {
	Collect(ctx context.Context, projectID string, options domain.CollectionOptions) (*domain.AggregateResult, error)
	Estimate(ctx context.Context, projectID string, options domain.CollectionOptions) (*collector.Feasibility, error)
}

// LimitChecker reports the current rate limit snapshot
type LimitChecker interface {
	CheckCurrentLimits(ctx context.Context) (*domain.RateLimitSnapshot, error)
}

// Server wraps the MCP SDK server with ghinsight tool registrations.
type Server struct {
	inner     *mcpsdk.Server
	collector CollectionService
	store     storage.Storage
	limits    LimitChecker
	logger    *slog.Logger
}

// NewServer creates a new MCP server with all ghinsight tools registered.
func NewServer(collection CollectionService, store storage.Storage, limits LimitChecker, logger *slog.Logger) *Server {
	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		nil,
	)

	srv := &Server{
		inner:     inner,
		collector: collection,
		store:     store,
		limits:    limits,
		logger:    logger,
	}

	srv.registerTools()

	return srv
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all ghinsight MCP tools to the server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameCollect,
		Description: collectToolDescription,
	}, s.handleCollect)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameEstimate,
		Description: estimateToolDescription,
	}, s.handleEstimate)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameRateLimits,
		Description: rateLimitsToolDescription,
	}, s.handleRateLimits)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameQueryHints,
		Description: queryHintsToolDescription,
	}, s.handleQueryHints)
}

// ToolNames returns the names of all registered tools.
func ToolNames() []string {
	return []string{ToolNameCollect, ToolNameEstimate, ToolNameRateLimits, ToolNameQueryHints}
}

// Tool description constants.
const (
	collectToolDescription = "Collect GitHub activity for a project " +
		"(issues, pull requests, commits, comments, reviews), store the run " +
		"and return its summary, headline metrics and query hints."

	estimateToolDescription = "Estimate how many GitHub API calls collecting " +
		"a project would cost and whether the remaining rate budget covers it, " +
		"without collecting anything."

	rateLimitsToolDescription = "Read the current GitHub API rate limits " +
		"for the core and GraphQL endpoints."

	queryHintsToolDescription = "List the query hints of a stored collection " +
		"run. Hints are jq-style paths into the result document, so an agent " +
		"can pull narrow slices instead of the whole result."
)
