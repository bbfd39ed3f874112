package domain

import (
	"context"
	"time"
)

// RunSummary is a run without its route payload, used by listings.
type RunSummary struct {
	ID              int64
	StartTime       time.Time
	EndTime         time.Time
	DistanceKm      float64
	DurationSeconds float64
	CaloriesBurned  float64
}

// DailyStats aggregates one calendar day against that day's goal.
type DailyStats struct {
	TotalDistanceKm  float64
	TotalCalories    float64
	TargetDistanceKm float64
	ProgressPercent  float64
}

// DayRollup aggregates every run of one calendar day.
type DayRollup struct {
	Day             time.Time
	DistanceKm      float64
	DurationSeconds float64
	CaloriesBurned  float64
	StartTime       time.Time // earliest start of the day
	EndTime         time.Time // latest end of the day
}

// GoalLinkedRun pairs a run with the target of its linked daily goal.
// TargetKm is 0 when the run was recorded without an active goal.
type GoalLinkedRun struct {
	RunSummary
	TargetKm float64
}

// EffortEntry annotates a run with its progress against the goal of its day.
type EffortEntry struct {
	RunSummary
	TargetKm        float64
	ProgressPercent float64
}

// Aggregator derives rollups and goal-relative progress from stored runs.
type Aggregator struct {
	runs  RunRepository
	goals GoalRepository
}

// NewAggregator constructs an Aggregator.
func NewAggregator(runs RunRepository, goals GoalRepository) *Aggregator {
	return &Aggregator{runs: runs, goals: goals}
}

// DailyStats sums the day's runs and reports progress against the day's goal.
func (a *Aggregator) DailyStats(ctx context.Context, userID string, day time.Time) (*DailyStats, error) {
	from, to := dayBounds(day)

	distance, calories, err := a.runs.DayTotals(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	goal, err := a.goals.ForDate(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	target := 0.0
	if goal != nil {
		target = goal.TargetDistanceKm
	}

	return &DailyStats{
		TotalDistanceKm:  round2(distance),
		TotalCalories:    round1(calories),
		TargetDistanceKm: target,
		ProgressPercent:  round1(clampPercent(distance, target)),
	}, nil
}

// History returns one page of run summaries, newest start first.
// pageIndex is 1-based; values below 1 are treated as the first page.
func (a *Aggregator) History(ctx context.Context, userID string, pageIndex, pageSize int) ([]RunSummary, error) {
	if pageIndex < 1 {
		pageIndex = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return a.runs.ListPage(ctx, userID, (pageIndex-1)*pageSize, pageSize)
}

// RunDetail fetches one run including its route payload. The ownership check
// is part of the lookup: a foreign run reads as not found.
func (a *Aggregator) RunDetail(ctx context.Context, runID int64, userID string) (*RunSession, error) {
	run, err := a.runs.Get(ctx, runID, userID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// MonthlyRollup returns one aggregate row per calendar day with runs,
// ordered by day ascending.
func (a *Aggregator) MonthlyRollup(ctx context.Context, userID string, month time.Month, year int) ([]DayRollup, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return a.runs.DailyRollups(ctx, userID, from, from.AddDate(0, 1, 0))
}

// WeeklySessions lists the month's runs individually, ordered by end time
// ascending. Unlike MonthlyRollup nothing is aggregated.
func (a *Aggregator) WeeklySessions(ctx context.Context, userID string, month time.Month, year int) ([]RunSummary, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return a.runs.ListByEndTime(ctx, userID, from, from.AddDate(0, 1, 0))
}

// TopEfforts returns the n longest runs by distance.
func (a *Aggregator) TopEfforts(ctx context.Context, userID string, n int) ([]RunSummary, error) {
	if n < 1 {
		n = 2
	}
	return a.runs.TopByDistance(ctx, userID, n)
}

// RelativeEffort annotates every run, newest first, with progress against
// the goal it was linked to at creation time.
func (a *Aggregator) RelativeEffort(ctx context.Context, userID string) ([]EffortEntry, error) {
	linked, err := a.runs.ListWithGoalTargets(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]EffortEntry, 0, len(linked))
	for _, run := range linked {
		entries = append(entries, EffortEntry{
			RunSummary:      run.RunSummary,
			TargetKm:        run.TargetKm,
			ProgressPercent: round1(clampPercent(run.DistanceKm, run.TargetKm)),
		})
	}
	return entries, nil
}
