package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtrack/internal/domain"
	"example.com/runtrack/internal/events"
	"example.com/runtrack/internal/observability"
)

// Runs provides Postgres-backed persistence for run sessions.
type Runs struct {
	pool *pgxpool.Pool
}

// NewRuns constructs a Runs repository.
func NewRuns(pool *pgxpool.Pool) *Runs {
	return &Runs{pool: pool}
}

// Create persists the run, applies the owner's lifetime-totals update and
// records the run.recorded outbox event inside a single transaction.
func (r *Runs) Create(ctx context.Context, run *domain.RunSession) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertRun = `INSERT INTO run_sessions (user_id, start_time, end_time, distance_km, duration_seconds, calories_burned, route_json, daily_goal_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING run_id`

	err = tx.QueryRow(ctx, insertRun,
		run.UserID,
		run.StartTime,
		run.EndTime,
		run.DistanceKm,
		run.DurationSeconds,
		run.CaloriesBurned,
		run.RouteJSON,
		run.DailyGoalID,
		run.CreatedAt,
	).Scan(&run.ID)
	if err != nil {
		return err
	}

	const bumpTotals = `UPDATE users
        SET total_distance_km = total_distance_km + $2,
            total_time_seconds = total_time_seconds + $3
        WHERE user_id=$1`

	if _, err = tx.Exec(ctx, bumpTotals, run.UserID, run.DistanceKm, run.DurationSeconds); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "run", strconv.FormatInt(run.ID, 10), events.TypeRunRecorded, run.UserID, events.RunRecorded{
		RunID:           run.ID,
		UserID:          run.UserID,
		DistanceKm:      run.DistanceKm,
		DurationSeconds: run.DurationSeconds,
		StartTime:       run.StartTime,
		EndTime:         run.EndTime,
		RecordedAt:      run.CreatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordRunPersisted(run.CreatedAt, run.DistanceKm)
	return nil
}

// Get retrieves a run by id scoped to its owner; nil when absent.
func (r *Runs) Get(ctx context.Context, runID int64, userID string) (*domain.RunSession, error) {
	const query = `SELECT run_id, user_id, start_time, end_time, distance_km, duration_seconds, calories_burned, route_json, daily_goal_id, created_at
        FROM run_sessions WHERE run_id=$1 AND user_id=$2`

	row := r.pool.QueryRow(ctx, query, runID, userID)
	var run domain.RunSession
	if err := row.Scan(&run.ID, &run.UserID, &run.StartTime, &run.EndTime, &run.DistanceKm, &run.DurationSeconds, &run.CaloriesBurned, &run.RouteJSON, &run.DailyGoalID, &run.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// ListPage returns one offset page of summaries ordered by start time descending.
func (r *Runs) ListPage(ctx context.Context, userID string, offset, limit int) ([]domain.RunSummary, error) {
	const query = `SELECT run_id, start_time, end_time, distance_km, duration_seconds, calories_burned
        FROM run_sessions WHERE user_id=$1
        ORDER BY start_time DESC
        OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows, limit)
}

// DayTotals sums distance and calories for runs starting within [from, to).
func (r *Runs) DayTotals(ctx context.Context, userID string, from, to time.Time) (float64, float64, error) {
	const query = `SELECT COALESCE(SUM(distance_km), 0), COALESCE(SUM(calories_burned), 0)
        FROM run_sessions
        WHERE user_id=$1 AND start_time >= $2 AND start_time < $3`

	var distance, calories float64
	if err := r.pool.QueryRow(ctx, query, userID, from, to).Scan(&distance, &calories); err != nil {
		return 0, 0, err
	}
	return distance, calories, nil
}

// DailyRollups aggregates runs per calendar day within [from, to), day ascending.
func (r *Runs) DailyRollups(ctx context.Context, userID string, from, to time.Time) ([]domain.DayRollup, error) {
	const query = `SELECT date_trunc('day', start_time) AS day,
            SUM(distance_km), SUM(duration_seconds), SUM(calories_burned),
            MIN(start_time), MAX(end_time)
        FROM run_sessions
        WHERE user_id=$1 AND start_time >= $2 AND start_time < $3
        GROUP BY day
        ORDER BY day ASC`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rollups := make([]domain.DayRollup, 0)
	for rows.Next() {
		var day domain.DayRollup
		if err := rows.Scan(&day.Day, &day.DistanceKm, &day.DurationSeconds, &day.CaloriesBurned, &day.StartTime, &day.EndTime); err != nil {
			return nil, err
		}
		rollups = append(rollups, day)
	}
	return rollups, rows.Err()
}

// ListByEndTime lists runs ending within [from, to) ordered by end time ascending.
func (r *Runs) ListByEndTime(ctx context.Context, userID string, from, to time.Time) ([]domain.RunSummary, error) {
	const query = `SELECT run_id, start_time, end_time, distance_km, duration_seconds, calories_burned
        FROM run_sessions
        WHERE user_id=$1 AND end_time >= $2 AND end_time < $3
        ORDER BY end_time ASC`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows, 0)
}

// TopByDistance returns the user's longest runs, stable on run id for ties.
func (r *Runs) TopByDistance(ctx context.Context, userID string, limit int) ([]domain.RunSummary, error) {
	const query = `SELECT run_id, start_time, end_time, distance_km, duration_seconds, calories_burned
        FROM run_sessions WHERE user_id=$1
        ORDER BY distance_km DESC, run_id ASC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows, limit)
}

// ListWithGoalTargets lists all runs newest first, each joined with the
// target of its linked goal (0 when the run is unlinked).
func (r *Runs) ListWithGoalTargets(ctx context.Context, userID string) ([]domain.GoalLinkedRun, error) {
	const query = `SELECT r.run_id, r.start_time, r.end_time, r.distance_km, r.duration_seconds, r.calories_burned,
            COALESCE(g.target_distance_km, 0)
        FROM run_sessions r
        LEFT JOIN daily_goals g ON g.goal_id = r.daily_goal_id
        WHERE r.user_id=$1
        ORDER BY r.start_time DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	linked := make([]domain.GoalLinkedRun, 0)
	for rows.Next() {
		var run domain.GoalLinkedRun
		if err := rows.Scan(&run.ID, &run.StartTime, &run.EndTime, &run.DistanceKm, &run.DurationSeconds, &run.CaloriesBurned, &run.TargetKm); err != nil {
			return nil, err
		}
		linked = append(linked, run)
	}
	return linked, rows.Err()
}

// TotalsByUser groups runs ending within [from, to] by user, ranked by total
// distance descending with total duration ascending as the tie-break.
func (r *Runs) TotalsByUser(ctx context.Context, from, to time.Time, limit int) ([]domain.LeaderboardRow, error) {
	const query = `SELECT r.user_id, u.username, u.avatar_url,
            SUM(r.distance_km) AS total_distance,
            SUM(r.duration_seconds) AS total_duration
        FROM run_sessions r
        JOIN users u ON u.user_id = r.user_id
        WHERE r.end_time >= $1 AND r.end_time <= $2
        GROUP BY r.user_id, u.username, u.avatar_url
        ORDER BY total_distance DESC, total_duration ASC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]domain.LeaderboardRow, 0, limit)
	for rows.Next() {
		var row domain.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Username, &row.AvatarURL, &row.TotalDistanceKm, &row.TotalDurationSeconds); err != nil {
			return nil, err
		}
		totals = append(totals, row)
	}
	return totals, rows.Err()
}

func scanSummaries(rows pgx.Rows, sizeHint int) ([]domain.RunSummary, error) {
	summaries := make([]domain.RunSummary, 0, sizeHint)
	for rows.Next() {
		var run domain.RunSummary
		if err := rows.Scan(&run.ID, &run.StartTime, &run.EndTime, &run.DistanceKm, &run.DurationSeconds, &run.CaloriesBurned); err != nil {
			return nil, err
		}
		summaries = append(summaries, run)
	}
	return summaries, rows.Err()
}
