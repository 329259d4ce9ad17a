package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/session"
)

func testRecord() *session.Record {
	done := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	return &session.Record{
		ID:          uuid.MustParse("6f1d8f0e-3c1a-4a57-9a53-0c1f9e0b5a11"),
		DayID:       "upper-a",
		DayName:     "Upper A",
		WorkoutType: models.Standard,
		Status:      models.StatusCompleted,
		StartedAt:   done.Add(-time.Hour),
		UpdatedAt:   done,
		CompletedAt: &done,
		Sets: []models.CompletedSet{
			{ExerciseName: "Press", ExerciseType: models.Weighted, ActualReps: 5, ActualWeight: 50},
		},
		Volume: 250,
	}
}

// TestPushSession verifies the record is posted with the API key and
// decodes into the server's upload shape.
func TestPushSession(t *testing.T) {
	var got models.SessionUpload
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	if err := c.PushSession(context.Background(), testRecord()); err != nil {
		t.Fatalf("PushSession: %v", err)
	}
	if gotPath != "/api/v1/sessions" {
		t.Errorf("path = %q, want /api/v1/sessions", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("X-API-Key = %q, want secret", gotKey)
	}
	if got.Status != models.StatusCompleted || len(got.Sets) != 1 || got.DayName != "Upper A" {
		t.Errorf("uploaded = %+v", got)
	}
}

// TestPushSessionNoRetry verifies a server error is returned after a single
// attempt.
func TestPushSessionNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").PushSession(context.Background(), testRecord())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") || !strings.Contains(err.Error(), "database unavailable") {
		t.Errorf("error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestPushSessionContextCanceled verifies the push honors its context.
func TestPushSessionContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewClient(srv.URL, "k").PushSession(ctx, testRecord()); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
