package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/storage"
)

type fakeSource struct {
	sessions []models.SessionRow
	bucket   string
}

func (f *fakeSource) QuerySessions(context.Context, time.Time, time.Time) ([]models.SessionRow, error) {
	return f.sessions, nil
}

func (f *fakeSource) GetSession(_ context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return &models.SessionDetail{SessionRow: s}, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeSource) GetTrainingVolume(_ context.Context, _, _ time.Time, bucket string) ([]models.TrainingVolumeRow, error) {
	f.bucket = bucket
	return []models.TrainingVolumeRow{{ExerciseName: "Squat", Volume: 1500}}, nil
}

func (f *fakeSource) GetSessionStats(context.Context) (*storage.SessionStats, error) {
	return &storage.SessionStats{TotalSessions: int64(len(f.sessions))}, nil
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", r.Content[0])
	}
	return tc.Text
}

// TestDefaultTimeRange verifies time range defaults (last 7 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to last 7 days
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if end.Year() != 2024 || end.Month() != 1 || end.Day() != 31 {
		t.Errorf("end = %v, want 2024-01-31", end)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "")
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetSessionTool verifies lookup by id and the error results for
// missing, malformed and unknown ids.
func TestGetSessionTool(t *testing.T) {
	id := uuid.New()
	h := &handlers{ds: &fakeSource{sessions: []models.SessionRow{{ID: id, DayName: "Legs"}}}, log: discardLogger()}
	ctx := context.Background()

	res, err := h.getSession(ctx, toolRequest(map[string]any{"id": id.String()}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || !strings.Contains(resultText(t, res), "Legs") {
		t.Errorf("get_session result = %+v", res)
	}

	for _, args := range []map[string]any{{}, {"id": "nope"}, {"id": uuid.NewString()}} {
		res, err := h.getSession(ctx, toolRequest(args))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("args %v: expected error result", args)
		}
	}
}

// TestGetTrainingVolumeTool verifies the bucket default and pass-through.
func TestGetTrainingVolumeTool(t *testing.T) {
	src := &fakeSource{}
	h := &handlers{ds: src, log: discardLogger()}

	if _, err := h.getTrainingVolume(context.Background(), toolRequest(nil)); err != nil {
		t.Fatal(err)
	}
	if src.bucket != "1 day" {
		t.Errorf("default bucket = %q, want 1 day", src.bucket)
	}
	if _, err := h.getTrainingVolume(context.Background(), toolRequest(map[string]any{"bucket": "1 month"})); err != nil {
		t.Fatal(err)
	}
	if src.bucket != "1 month" {
		t.Errorf("bucket = %q, want 1 month", src.bucket)
	}
}

// TestGetSessionsInvalidDate verifies bad dates produce a tool error, not a
// protocol error.
func TestGetSessionsInvalidDate(t *testing.T) {
	h := &handlers{ds: &fakeSource{}, log: discardLogger()}
	res, err := h.getSessions(context.Background(), toolRequest(map[string]any{"start": "last week"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result for invalid date")
	}
}

// TestRecentSessionsResource verifies the resource returns JSON for its URI.
func TestRecentSessionsResource(t *testing.T) {
	h := &handlers{ds: &fakeSource{sessions: []models.SessionRow{{ID: uuid.New(), DayName: "Push"}}}, log: discardLogger()}
	var req mcp.ReadResourceRequest
	req.Params.URI = "repclock://recent_sessions"

	contents, err := h.recentSessions(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	if tc.URI != req.Params.URI || !strings.Contains(tc.Text, "Push") {
		t.Errorf("resource = %+v", tc)
	}
}

// TestNewRegistersTools verifies the server builds with its tools.
func TestNewRegistersTools(t *testing.T) {
	s := New(&fakeSource{}, "test", nil)
	if s == nil {
		t.Fatal("New returned nil")
	}
	tools := s.ListTools()
	for _, name := range []string{"get_sessions", "get_session", "get_training_volume", "get_session_stats"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
