package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/storage"
)

// Tool name constants.
const (
	ToolNameCollect    = "collect_activity"
	ToolNameEstimate   = "estimate_calls"
	ToolNameRateLimits = "rate_limits"
	ToolNameQueryHints = "list_query_hints"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyProject indicates the project parameter is empty.
	ErrEmptyProject = errors.New("project parameter is required and must not be empty")
	// ErrNoRunSelector indicates neither run_id nor project was provided.
	ErrNoRunSelector = errors.New("either run_id or project must be provided")
)

// Input types (auto-generate JSON schemas via struct tags).

// CollectInput is the input schema for the collect_activity and
// estimate_calls tools.
type CollectInput struct {
	Project string                    `json:"project"           jsonschema:"owner login or owner/repo to collect"`
	Options *domain.CollectionOptions `json:"options,omitempty" jsonschema:"collection options; omitted means collect everything with default limits"`
}

func (in CollectInput) options() domain.CollectionOptions {
	if in.Options != nil {
		return *in.Options
	}
	return domain.DefaultOptions()
}

// RateLimitsInput is the input schema for the rate_limits tool.
type RateLimitsInput struct{}

// QueryHintsInput is the input schema for the list_query_hints tool.
type QueryHintsInput struct {
	RunID   string `json:"run_id,omitempty"  jsonschema:"run to read hints from"`
	Project string `json:"project,omitempty" jsonschema:"project whose latest run to read when run_id is empty"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// handleCollect processes collect_activity tool calls. The full result can
// run to megabytes, so the tool returns the run summary, the project-level
// metrics and the query hints; the stored run holds the rest.
func (s *Server) handleCollect(ctx context.Context, _ *mcpsdk.CallToolRequest, input CollectInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Project == "" {
		return errorResult(ErrEmptyProject)
	}

	result, err := s.collector.Collect(ctx, input.Project, input.options())
	if err != nil {
		return errorResult(err)
	}

	if err := s.store.SaveRun(ctx, result); err != nil {
		s.logger.Error("failed to persist run",
			"run_id", result.Metadata.Execution.RunID,
			"error", err)
	}

	return jsonResult(map[string]any{
		"summary":         storage.SummaryOf(result),
		"project_summary": result.Metrics.ProjectSummary,
		"query_hints":     result.Metadata.QueryHints,
	})
}

// handleEstimate processes estimate_calls tool calls.
func (s *Server) handleEstimate(ctx context.Context, _ *mcpsdk.CallToolRequest, input CollectInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Project == "" {
		return errorResult(ErrEmptyProject)
	}

	feasibility, err := s.collector.Estimate(ctx, input.Project, input.options())
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(feasibility)
}

// handleRateLimits processes rate_limits tool calls.
func (s *Server) handleRateLimits(ctx context.Context, _ *mcpsdk.CallToolRequest, _ RateLimitsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	snapshot, err := s.limits.CheckCurrentLimits(ctx)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(snapshot)
}

// handleQueryHints processes list_query_hints tool calls.
func (s *Server) handleQueryHints(ctx context.Context, _ *mcpsdk.CallToolRequest, input QueryHintsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	var (
		result *domain.AggregateResult
		err    error
	)
	switch {
	case input.RunID != "":
		result, err = s.store.GetRun(ctx, input.RunID)
	case input.Project != "":
		result, err = s.store.LatestRun(ctx, input.Project)
	default:
		return errorResult(ErrNoRunSelector)
	}
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]any{
		"run_id":      result.Metadata.Execution.RunID,
		"project_id":  result.Metadata.Collection.ProjectID,
		"query_hints": result.Metadata.QueryHints,
	})
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
