package domain

import (
	"context"
	"time"
)

// GoalRepository persists daily distance goals.
type GoalRepository interface {
	// Latest returns the user's most recently inserted goal row regardless of day.
	Latest(ctx context.Context, userID string) (*DailyGoal, error)
	// ForDate returns the most recent goal row matching the calendar day, nil if none.
	ForDate(ctx context.Context, userID string, day time.Time) (*DailyGoal, error)
	// Upsert updates the day's most recent goal row in place, inserting when
	// no row exists for the day.
	Upsert(ctx context.Context, userID string, day time.Time, targetKm float64) (*DailyGoal, error)
}

// Goals manages one daily distance goal per user per calendar day.
type Goals struct {
	repo GoalRepository
}

// NewGoals constructs a Goals service.
func NewGoals(repo GoalRepository) *Goals {
	return &Goals{repo: repo}
}

// GoalForDate returns the goal effective for the given day, nil when unset.
func (g *Goals) GoalForDate(ctx context.Context, userID string, day time.Time) (*DailyGoal, error) {
	return g.repo.ForDate(ctx, userID, day)
}

// TodayGoal returns the goal for the current UTC day, nil when unset.
func (g *Goals) TodayGoal(ctx context.Context, userID string) (*DailyGoal, error) {
	return g.GoalForDate(ctx, userID, time.Now().UTC())
}

// SetGoal creates or replaces the goal for the given day.
func (g *Goals) SetGoal(ctx context.Context, userID string, day time.Time, targetKm float64) (*DailyGoal, error) {
	if targetKm <= 0 || targetKm > 1000 {
		return nil, &ValidationError{Field: "target_distance_km", Detail: "must be within (0, 1000]"}
	}
	return g.repo.Upsert(ctx, userID, day, targetKm)
}

// SetTodayGoal creates or replaces the goal for the current UTC day.
func (g *Goals) SetTodayGoal(ctx context.Context, userID string, targetKm float64) (*DailyGoal, error) {
	return g.SetGoal(ctx, userID, time.Now().UTC(), targetKm)
}
