package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/repclock/internal/models"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("storage: session not found")

// UpsertSession stores a pushed session. The session row is replaced and its
// sets and rounds are rewritten, so pushing the same record twice is
// harmless. Returns the stored row.
func (db *DB) UpsertSession(ctx context.Context, u *models.SessionUpload) (models.SessionRow, error) {
	row := u.Row()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return row, fmt.Errorf("beginning session upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, day_id, day_name, workout_type, status, started_at,
		 updated_at, completed_at, bodyweight_kg, load_percentage, volume, set_count, round_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT (id) DO UPDATE SET
		   day_id = EXCLUDED.day_id,
		   day_name = EXCLUDED.day_name,
		   workout_type = EXCLUDED.workout_type,
		   status = EXCLUDED.status,
		   started_at = EXCLUDED.started_at,
		   updated_at = EXCLUDED.updated_at,
		   completed_at = EXCLUDED.completed_at,
		   bodyweight_kg = EXCLUDED.bodyweight_kg,
		   load_percentage = EXCLUDED.load_percentage,
		   volume = EXCLUDED.volume,
		   set_count = EXCLUDED.set_count,
		   round_count = EXCLUDED.round_count`,
		row.ID, row.DayID, row.DayName, row.WorkoutType, row.Status, row.StartedAt,
		row.UpdatedAt, row.CompletedAt, row.Bodyweight, row.LoadPercentage, row.Volume,
		row.SetCount, row.RoundCount)
	if err != nil {
		return row, fmt.Errorf("upserting session %s: %w", row.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM session_sets WHERE session_id = $1`, row.ID); err != nil {
		return row, fmt.Errorf("clearing session sets: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM session_rounds WHERE session_id = $1`, row.ID); err != nil {
		return row, fmt.Errorf("clearing session rounds: %w", err)
	}
	if err := insertSets(ctx, tx, row, u.Sets); err != nil {
		return row, err
	}
	if err := insertRounds(ctx, tx, row, u.Rounds); err != nil {
		return row, err
	}

	if err := tx.Commit(ctx); err != nil {
		return row, fmt.Errorf("committing session upsert: %w", err)
	}
	return row, nil
}

func setVolume(t models.ExerciseType, s models.CompletedSet, row models.SessionRow) float64 {
	return models.ComputeVolume(t, []models.CompletedSet{s}, row.Bodyweight, row.LoadPercentage)
}

func insertSets(ctx context.Context, tx pgx.Tx, row models.SessionRow, sets []models.CompletedSet) error {
	if len(sets) == 0 {
		return nil
	}
	const cols = 13
	query := `INSERT INTO session_sets (session_id, seq, exercise_index, exercise_name,
		exercise_type, set_index, planned_reps, planned_weight, actual_reps, actual_weight,
		volume, completed_at, notes) VALUES `
	args := make([]any, 0, len(sets)*cols)
	valueStrings := make([]string, 0, len(sets))
	for i, s := range sets {
		valueStrings = append(valueStrings, placeholders(i*cols, cols))
		args = append(args, row.ID, i, s.ExerciseIndex, s.ExerciseName, s.ExerciseType,
			s.SetIndex, s.PlannedReps, s.PlannedWeight, s.ActualReps, s.ActualWeight,
			setVolume(s.ExerciseType, s, row), s.CompletedAt, s.Notes)
	}
	if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
		return fmt.Errorf("inserting session sets: %w", err)
	}
	return nil
}

func insertRounds(ctx context.Context, tx pgx.Tx, row models.SessionRow, rounds []models.CompletedRound) error {
	if len(rounds) == 0 {
		return nil
	}
	const cols = 13
	query := `INSERT INTO session_rounds (session_id, seq, round_index, exercise_index,
		exercise_name, exercise_type, planned_reps, planned_weight, actual_reps, actual_weight,
		volume, completed_at, notes) VALUES `
	args := make([]any, 0, len(rounds)*cols)
	valueStrings := make([]string, 0, len(rounds))
	for i, r := range rounds {
		valueStrings = append(valueStrings, placeholders(i*cols, cols))
		args = append(args, row.ID, i, r.RoundIndex, r.ExerciseIndex, r.ExerciseName,
			r.ExerciseType, r.PlannedReps, r.PlannedWeight, r.ActualReps, r.ActualWeight,
			setVolume(r.ExerciseType, r.AsSet(), row), r.CompletedAt, r.Notes)
	}
	if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
		return fmt.Errorf("inserting session rounds: %w", err)
	}
	return nil
}

// placeholders returns "($base+1,...,$base+n)".
func placeholders(base, n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", base+i)
	}
	b.WriteByte(')')
	return b.String()
}

const sessionColumns = `id, day_id, day_name, workout_type, status, started_at, updated_at,
	completed_at, bodyweight_kg, load_percentage, volume, set_count, round_count`

func scanSession(row pgx.Row) (models.SessionRow, error) {
	var r models.SessionRow
	err := row.Scan(&r.ID, &r.DayID, &r.DayName, &r.WorkoutType, &r.Status, &r.StartedAt,
		&r.UpdatedAt, &r.CompletedAt, &r.Bodyweight, &r.LoadPercentage, &r.Volume,
		&r.SetCount, &r.RoundCount)
	return r, err
}

// QuerySessions lists sessions started in [start, end), newest first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE started_at >= $1 AND started_at < $2
		 ORDER BY started_at DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetSession returns one session with its sets and rounds.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	r, err := scanSession(db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}
	detail := &models.SessionDetail{SessionRow: r}

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_index, exercise_name, exercise_type, set_index, planned_reps,
		 planned_weight, actual_reps, actual_weight, completed_at, notes
		 FROM session_sets WHERE session_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	for rows.Next() {
		var s models.CompletedSet
		if err := rows.Scan(&s.ExerciseIndex, &s.ExerciseName, &s.ExerciseType, &s.SetIndex,
			&s.PlannedReps, &s.PlannedWeight, &s.ActualReps, &s.ActualWeight,
			&s.CompletedAt, &s.Notes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		detail.Sets = append(detail.Sets, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading session sets: %w", err)
	}

	rows, err = db.Pool.Query(ctx,
		`SELECT round_index, exercise_index, exercise_name, exercise_type, planned_reps,
		 planned_weight, actual_reps, actual_weight, completed_at, notes
		 FROM session_rounds WHERE session_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session rounds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rd models.CompletedRound
		if err := rows.Scan(&rd.RoundIndex, &rd.ExerciseIndex, &rd.ExerciseName, &rd.ExerciseType,
			&rd.PlannedReps, &rd.PlannedWeight, &rd.ActualReps, &rd.ActualWeight,
			&rd.CompletedAt, &rd.Notes); err != nil {
			return nil, fmt.Errorf("scanning session round: %w", err)
		}
		detail.Rounds = append(detail.Rounds, rd)
	}
	return detail, rows.Err()
}

// GetTrainingVolume aggregates completed sets and round entries per period
// and exercise for sessions started in [start, end). bucket is "1 day",
// "1 week" or "1 month".
func (db *DB) GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]models.TrainingVolumeRow, error) {
	rows, err := db.Pool.Query(ctx,
		`WITH entries AS (
		   SELECT s.started_at, ss.exercise_name, ss.actual_reps, ss.volume
		   FROM session_sets ss JOIN sessions s ON s.id = ss.session_id
		   WHERE s.started_at >= $1 AND s.started_at < $2
		   UNION ALL
		   SELECT s.started_at, sr.exercise_name, sr.actual_reps, sr.volume
		   FROM session_rounds sr JOIN sessions s ON s.id = sr.session_id
		   WHERE s.started_at >= $1 AND s.started_at < $2
		 )
		 SELECT date_trunc($3, started_at)::date AS period, exercise_name,
		        COUNT(*)::int, COALESCE(SUM(actual_reps), 0)::int, COALESCE(SUM(volume), 0)
		 FROM entries
		 GROUP BY period, exercise_name
		 ORDER BY period DESC, exercise_name`,
		start, end, truncInterval(bucket))
	if err != nil {
		return nil, fmt.Errorf("querying training volume: %w", err)
	}
	defer rows.Close()

	var result []models.TrainingVolumeRow
	for rows.Next() {
		var r models.TrainingVolumeRow
		if err := rows.Scan(&r.Date, &r.ExerciseName, &r.Sets, &r.Reps, &r.Volume); err != nil {
			return nil, fmt.Errorf("scanning training volume: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// truncInterval converts bucket strings like "1 week" to the interval name
// that date_trunc expects.
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "day"
	}
}
