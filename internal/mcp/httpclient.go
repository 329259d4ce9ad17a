package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/storage"
)

// HTTPClient implements DataSource by calling the repclock REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToAgg maps MCP bucket values to REST API agg parameter values.
func bucketToAgg(bucket string) string {
	switch bucket {
	case "1 week":
		return "weekly"
	case "1 month":
		return "monthly"
	default:
		return "daily"
	}
}

// errNotFound marks a 404 so callers can map it to storage.ErrNotFound.
type errNotFound struct{ path string }

func (e errNotFound) Error() string { return "httpclient: " + e.path + " not found" }

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound{path: path}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRow, error) {
	body, err := c.get(ctx, "/api/v1/sessions", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var rows []models.SessionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	body, err := c.get(ctx, "/api/v1/sessions/"+id.String(), nil)
	if _, ok := err.(errNotFound); ok {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var detail models.SessionDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return &detail, nil
}

func (c *HTTPClient) GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]models.TrainingVolumeRow, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	body, err := c.get(ctx, "/api/v1/volume", params)
	if err != nil {
		return nil, err
	}

	var rows []models.TrainingVolumeRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode training volume: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) GetSessionStats(ctx context.Context) (*storage.SessionStats, error) {
	body, err := c.get(ctx, "/api/v1/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats storage.SessionStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("httpclient: decode session stats: %w", err)
	}
	return &stats, nil
}
