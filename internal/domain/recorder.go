package domain

import (
	"context"
	"time"
)

// MET-derived constant for running; calories = weight * distance * caloriesPerKgKm.
const caloriesPerKgKm = 1.036

// defaultWeightKg is assumed when the user never entered a weight.
const defaultWeightKg = 65.0

// UserRepository resolves external user records and their lifetime totals.
type UserRepository interface {
	// Find returns nil without error when the user does not exist.
	Find(ctx context.Context, userID string) (*User, error)
}

// RunRepository captures persistence operations for run sessions.
type RunRepository interface {
	// Create persists the run and applies the paired lifetime-totals update
	// in one transaction. The run's ID is assigned on return.
	Create(ctx context.Context, run *RunSession) error
	Get(ctx context.Context, runID int64, userID string) (*RunSession, error)
	ListPage(ctx context.Context, userID string, offset, limit int) ([]RunSummary, error)
	DayTotals(ctx context.Context, userID string, from, to time.Time) (distanceKm, calories float64, err error)
	DailyRollups(ctx context.Context, userID string, from, to time.Time) ([]DayRollup, error)
	ListByEndTime(ctx context.Context, userID string, from, to time.Time) ([]RunSummary, error)
	TopByDistance(ctx context.Context, userID string, limit int) ([]RunSummary, error)
	ListWithGoalTargets(ctx context.Context, userID string) ([]GoalLinkedRun, error)
	TotalsByUser(ctx context.Context, from, to time.Time, limit int) ([]LeaderboardRow, error)
}

// Recorder validates and persists finished runs.
type Recorder struct {
	users UserRepository
	runs  RunRepository
	goals GoalRepository
}

// NewRecorder constructs a Recorder.
func NewRecorder(users UserRepository, runs RunRepository, goals GoalRepository) *Recorder {
	return &Recorder{users: users, runs: runs, goals: goals}
}

// RunInput captures the payload from the API layer.
type RunInput struct {
	DistanceKm      float64
	DurationSeconds float64
	StartTime       time.Time
	EndTime         time.Time
	RouteJSON       string
}

// RunResult is returned after a run is recorded.
type RunResult struct {
	ID             int64
	DistanceKm     float64
	CaloriesBurned float64
	Message        string
}

// RecordRun computes calories, links the run to the active daily goal and
// persists it together with the owner's lifetime totals.
func (r *Recorder) RecordRun(ctx context.Context, userID string, in RunInput) (*RunResult, error) {
	user, err := r.users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	weight := user.WeightKg
	if weight <= 0 {
		weight = defaultWeightKg
	}
	calories := weight * in.DistanceKm * caloriesPerKgKm

	run := &RunSession{
		UserID:          userID,
		StartTime:       in.StartTime.UTC(),
		EndTime:         in.EndTime.UTC(),
		DistanceKm:      in.DistanceKm,
		DurationSeconds: in.DurationSeconds,
		CaloriesBurned:  calories,
		RouteJSON:       in.RouteJSON,
		CreatedAt:       time.Now().UTC(),
	}

	// Goal linkage considers only the user's most recent goal row. An older
	// row matching the run's day is deliberately not a fallback.
	latest, err := r.goals.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil && sameCalendarDay(latest.Date, run.StartTime) {
		goalID := latest.ID
		run.DailyGoalID = &goalID
	}

	if err := r.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	return &RunResult{
		ID:             run.ID,
		DistanceKm:     run.DistanceKm,
		CaloriesBurned: round1(calories),
		Message:        "run session saved",
	}, nil
}
