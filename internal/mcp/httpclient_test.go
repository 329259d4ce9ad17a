package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestQuerySessions verifies the HTTP client sends the time range and
// parses the session list.
func TestQuerySessions(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("start=%q, want 2026-01-01T00:00:00Z", got)
			}
			writeTestJSON(t, w, []models.SessionRow{
				{ID: uuid.New(), DayName: "Upper A", Status: models.StatusCompleted, Volume: 890},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)

	rows, err := client.QuerySessions(context.Background(), start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d sessions, want 1", len(rows))
	}
	if rows[0].Volume != 890 {
		t.Errorf("volume=%v, want 890", rows[0].Volume)
	}
}

// TestGetSessionNotFound verifies a 404 maps to storage.ErrNotFound.
func TestGetSessionNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).GetSession(context.Background(), uuid.New())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err=%v, want storage.ErrNotFound", err)
	}
}

// TestGetSession verifies the detail response including sets is decoded.
func TestGetSession(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.SessionDetail{
				SessionRow: models.SessionRow{ID: id, DayName: "Legs"},
				Sets:       []models.CompletedSet{{ExerciseName: "Squat", ActualReps: 5, ActualWeight: 100}},
			})
		},
	})
	defer ts.Close()

	detail, err := NewHTTPClient(ts.URL).GetSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if detail.ID != id || len(detail.Sets) != 1 || detail.Sets[0].ExerciseName != "Squat" {
		t.Errorf("detail=%+v", detail)
	}
}

// TestGetTrainingVolumeAgg verifies MCP buckets map to REST agg values.
func TestGetTrainingVolumeAgg(t *testing.T) {
	var gotAgg string
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/volume": func(w http.ResponseWriter, r *http.Request) {
			gotAgg = r.URL.Query().Get("agg")
			writeTestJSON(t, w, []models.TrainingVolumeRow{{ExerciseName: "Squat", Sets: 3, Reps: 15, Volume: 1500}})
		},
	})
	defer ts.Close()

	rows, err := NewHTTPClient(ts.URL).GetTrainingVolume(context.Background(), time.Now().AddDate(0, -1, 0), time.Now(), "1 week")
	if err != nil {
		t.Fatal(err)
	}
	if gotAgg != "weekly" {
		t.Errorf("agg=%q, want weekly", gotAgg)
	}
	if len(rows) != 1 || rows[0].Volume != 1500 {
		t.Errorf("rows=%+v", rows)
	}
}

// TestHTTPClientServerError verifies non-200 responses surface as errors.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL).GetSessionStats(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

// TestBucketToAgg verifies the bucket mapping defaults to daily.
func TestBucketToAgg(t *testing.T) {
	tests := []struct{ bucket, want string }{
		{"1 day", "daily"},
		{"1 week", "weekly"},
		{"1 month", "monthly"},
		{"", "daily"},
	}
	for _, tt := range tests {
		if got := bucketToAgg(tt.bucket); got != tt.want {
			t.Errorf("bucketToAgg(%q) = %q, want %q", tt.bucket, got, tt.want)
		}
	}
}
