package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/storage"
)

// Client is the API client for ghinsight
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a client with a custom request timeout.
// Collection runs can take minutes, so callers that use Collect should set
// a timeout sized for a full run.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ProjectMetrics is the response of the project metrics endpoint
type ProjectMetrics struct {
	RunID     string         `json:"run_id"`
	ProjectID string         `json:"project_id"`
	Metrics   domain.Metrics `json:"metrics"`
}

type collectRequest struct {
	Project string                    `json:"project"`
	Options *domain.CollectionOptions `json:"options,omitempty"`
}

// Collect runs a collection for a project. A nil options means server-side
// defaults, which collect everything.
func (c *Client) Collect(project string, options *domain.CollectionOptions) (*domain.AggregateResult, error) {
	var response struct {
		Data *domain.AggregateResult `json:"data"`
	}
	if err := c.post("/api/v1/collections", collectRequest{Project: project, Options: options}, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// Estimate prices a collection without running it
func (c *Client) Estimate(project string, options *domain.CollectionOptions) (*collector.Feasibility, error) {
	var response struct {
		Data *collector.Feasibility `json:"data"`
	}
	if err := c.post("/api/v1/collections/estimate", collectRequest{Project: project, Options: options}, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListRuns retrieves stored run summaries, newest first. An empty project
// matches every project, limit <= 0 uses the server default.
func (c *Client) ListRuns(project string, limit int) ([]*storage.RunSummary, error) {
	params := url.Values{}
	if project != "" {
		params.Set("project", project)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Data []*storage.RunSummary `json:"data"`
	}
	if err := c.get("/api/v1/runs", params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRun retrieves one stored result in full
func (c *Client) GetRun(runID string) (*domain.AggregateResult, error) {
	var response struct {
		Data *domain.AggregateResult `json:"data"`
	}
	if err := c.get("/api/v1/runs/"+url.PathEscape(runID), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRunMetrics retrieves only the computed metrics of one stored run
func (c *Client) GetRunMetrics(runID string) (*domain.Metrics, error) {
	var response struct {
		Data *domain.Metrics `json:"data"`
	}
	if err := c.get("/api/v1/runs/"+url.PathEscape(runID)+"/metrics", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetProjectMetrics retrieves the metrics of a project's most recent run
func (c *Client) GetProjectMetrics(project string) (*ProjectMetrics, error) {
	var response struct {
		Data *ProjectMetrics `json:"data"`
	}
	if err := c.get("/api/v1/projects/"+url.PathEscape(project)+"/metrics", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLimits retrieves the live rate limit snapshot
func (c *Client) GetLimits() (*domain.RateLimitSnapshot, error) {
	var response struct {
		Data *domain.RateLimitSnapshot `json:"data"`
	}
	if err := c.get("/api/v1/limits", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) get(path string, params url.Values, result any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Get(u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body, result any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
