package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtrack/internal/domain"
)

// Goals provides Postgres-backed persistence for daily distance goals.
type Goals struct {
	pool *pgxpool.Pool
}

// NewGoals constructs a Goals repository.
func NewGoals(pool *pgxpool.Pool) *Goals {
	return &Goals{pool: pool}
}

// Latest returns the user's most recently inserted goal row, nil when none.
func (r *Goals) Latest(ctx context.Context, userID string) (*domain.DailyGoal, error) {
	const query = `SELECT goal_id, user_id, goal_date, target_distance_km
        FROM daily_goals WHERE user_id=$1
        ORDER BY goal_id DESC LIMIT 1`

	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

// ForDate returns the most recent goal row for the calendar day, nil when none.
func (r *Goals) ForDate(ctx context.Context, userID string, day time.Time) (*domain.DailyGoal, error) {
	const query = `SELECT goal_id, user_id, goal_date, target_distance_km
        FROM daily_goals WHERE user_id=$1 AND goal_date=$2
        ORDER BY goal_id DESC LIMIT 1`

	return r.scanOne(r.pool.QueryRow(ctx, query, userID, calendarDay(day)))
}

// Upsert updates the day's most recent goal row in place, inserting a new
// row when the user has no goal for that day yet.
func (r *Goals) Upsert(ctx context.Context, userID string, day time.Time, targetKm float64) (*domain.DailyGoal, error) {
	const update = `UPDATE daily_goals
        SET target_distance_km=$3, updated_at=NOW()
        WHERE goal_id = (
            SELECT goal_id FROM daily_goals
            WHERE user_id=$1 AND goal_date=$2
            ORDER BY goal_id DESC LIMIT 1
        )
        RETURNING goal_id, user_id, goal_date, target_distance_km`

	goal, err := r.scanOne(r.pool.QueryRow(ctx, update, userID, calendarDay(day), targetKm))
	if err != nil {
		return nil, err
	}
	if goal != nil {
		return goal, nil
	}

	const insert = `INSERT INTO daily_goals (user_id, goal_date, target_distance_km)
        VALUES ($1,$2,$3)
        RETURNING goal_id, user_id, goal_date, target_distance_km`

	return r.scanOne(r.pool.QueryRow(ctx, insert, userID, calendarDay(day), targetKm))
}

func (r *Goals) scanOne(row pgx.Row) (*domain.DailyGoal, error) {
	var goal domain.DailyGoal
	if err := row.Scan(&goal.ID, &goal.UserID, &goal.Date, &goal.TargetDistanceKm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &goal, nil
}

// calendarDay strips the time-of-day so goal_date comparisons are by UTC day.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
