// Package upload pushes finished session records to the repclock server.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/session"
)

// Client sends session records to the repclock server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new HTTP client for the repclock server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PushSession POSTs a session record to the server. It is attempted once;
// the caller decides what a failure means.
func (c *Client) PushSession(ctx context.Context, rec *session.Record) error {
	data, err := json.Marshal(toUpload(rec))
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.serverURL+"/api/v1/sessions", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushing session %s: %w", rec.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

func toUpload(rec *session.Record) models.SessionUpload {
	return models.SessionUpload{
		ID:             rec.ID,
		DayID:          rec.DayID,
		DayName:        rec.DayName,
		WorkoutType:    rec.WorkoutType,
		Status:         rec.Status,
		StartedAt:      rec.StartedAt,
		UpdatedAt:      rec.UpdatedAt,
		CompletedAt:    rec.CompletedAt,
		Bodyweight:     rec.Bodyweight,
		LoadPercentage: rec.LoadPercentage,
		Volume:         rec.Volume,
		Sets:           rec.Sets,
		Rounds:         rec.Rounds,
	}
}
