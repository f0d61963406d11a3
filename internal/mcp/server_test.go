package mcp

import (
	"context"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/domain"
)

// startSession connects an in-memory client to the server and returns the
// live session
func startSession(t *testing.T, srv *Server) (*mcpsdk.ClientSession, context.Context) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-serverDone
	})

	return session, ctx
}

func TestServerToolsList(t *testing.T) {
	t.Parallel()

	srv, _ := newTestMCPServer(t)
	session, ctx := startSession(t, srv)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, ToolNames(), toolNames)
}

func TestServerCallEstimate(t *testing.T) {
	t.Parallel()

	srv, f := newTestMCPServer(t)
	f.collector.On("Estimate", mock.Anything, "acme", domain.DefaultOptions()).Return(&collector.Feasibility{
		ProjectID:    "acme",
		Repositories: 2,
		Estimate:     domain.CallEstimate{EstimatedCalls: 80, Feasible: true},
	}, nil)

	session, ctx := startSession(t, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: ToolNameEstimate,
		Arguments: map[string]any{
			"project": "acme",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.Contains(t, contentText(t, result), `"estimated_calls": 80`)
}

func TestServerCallRejectsEmptyProject(t *testing.T) {
	t.Parallel()

	srv, _ := newTestMCPServer(t)
	session, ctx := startSession(t, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: ToolNameCollect,
		Arguments: map[string]any{
			"project": "",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}
