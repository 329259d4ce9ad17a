package storage

import (
	"context"
	"fmt"
	"time"
)

// SessionStats holds aggregate statistics about all stored sessions.
type SessionStats struct {
	TotalSessions     int64            `json:"total_sessions"`
	CompletedSessions int64            `json:"completed_sessions"`
	AbandonedSessions int64            `json:"abandoned_sessions"`
	TotalSets         int64            `json:"total_sets"`
	TotalRounds       int64            `json:"total_rounds"`
	TotalVolume       float64          `json:"total_volume"`
	EarliestSession   *time.Time       `json:"earliest_session"`
	LatestSession     *time.Time       `json:"latest_session"`
	SessionsByDay     []DaySessionStat `json:"sessions_by_day"`
}

// DaySessionStat holds summary stats for one workout day.
type DaySessionStat struct {
	DayName string  `json:"day_name"`
	Count   int64   `json:"count"`
	Volume  float64 `json:"volume"`
}

// GetSessionStats returns aggregate statistics over all stored sessions.
func (db *DB) GetSessionStats(ctx context.Context) (*SessionStats, error) {
	stats := &SessionStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'abandoned'),
		        COALESCE(SUM(set_count), 0),
		        COALESCE(SUM(round_count), 0),
		        COALESCE(SUM(volume), 0),
		        MIN(started_at),
		        MAX(started_at)
		 FROM sessions`,
	).Scan(&stats.TotalSessions, &stats.CompletedSessions, &stats.AbandonedSessions,
		&stats.TotalSets, &stats.TotalRounds, &stats.TotalVolume,
		&stats.EarliestSession, &stats.LatestSession)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT day_name, COUNT(*), COALESCE(SUM(volume), 0)
		 FROM sessions
		 GROUP BY day_name
		 ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions by day: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DaySessionStat
		if err := rows.Scan(&d.DayName, &d.Count, &d.Volume); err != nil {
			return nil, fmt.Errorf("scanning day stat: %w", err)
		}
		stats.SessionsByDay = append(stats.SessionsByDay, d)
	}
	return stats, rows.Err()
}
