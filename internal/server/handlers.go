package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repclock/internal/metrics"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/storage"
)

func (s *Server) handlePushSession(w http.ResponseWriter, r *http.Request) {
	var upload models.SessionUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if upload.ID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id required"})
		return
	}
	switch upload.Status {
	case models.StatusInProgress, models.StatusCompleted, models.StatusAbandoned:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown session status " + string(upload.Status)})
		return
	}

	row, err := s.db.UpsertSession(r.Context(), &upload)
	if err != nil {
		s.log.Error("session upsert error", "session_id", upload.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	metrics.SessionsReceived.WithLabelValues(string(row.Status)).Inc()
	metrics.SessionEntries.WithLabelValues("set").Add(float64(row.SetCount))
	metrics.SessionEntries.WithLabelValues("round").Add(float64(row.RoundCount))
	if row.Status == models.StatusCompleted {
		metrics.SessionVolume.Observe(row.Volume)
	}
	s.log.Info("session received",
		"session_id", row.ID,
		"day", row.DayName,
		"status", row.Status,
		"sets", row.SetCount,
		"rounds", row.RoundCount,
		"volume", row.Volume,
	)
	s.feed.broadcast(sseEvent{Event: "session", Data: mustJSON(row)})

	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := s.db.QuerySessions(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.SessionRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	detail, err := s.db.GetSession(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleTrainingVolume(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bucket := "1 day"
	switch r.URL.Query().Get("agg") {
	case "weekly":
		bucket = "1 week"
	case "monthly":
		bucket = "1 month"
	}

	rows, err := s.db.GetTrainingVolume(r.Context(), start, end, bucket)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.TrainingVolumeRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetSessionStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
