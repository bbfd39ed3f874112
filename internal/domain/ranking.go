package domain

import (
	"context"
	"fmt"
	"time"
)

// LeaderboardRow is one user's weekly totals as stored.
type LeaderboardRow struct {
	UserID               string
	Username             string
	AvatarURL            *string
	TotalDistanceKm      float64
	TotalDurationSeconds float64
}

// RankingEntry is a leaderboard row prepared for presentation.
type RankingEntry struct {
	Username             string
	AvatarURL            *string
	TotalDistanceKm      float64
	TotalDurationSeconds float64
	TotalTimeFormatted   string
}

// Ranking computes leaderboards over the current calendar week.
type Ranking struct {
	runs RunRepository
	now  func() time.Time
}

// NewRanking constructs a Ranking engine.
func NewRanking(runs RunRepository) *Ranking {
	return &Ranking{runs: runs, now: time.Now}
}

// WeekRange returns the Monday 00:00 UTC start of the week containing t and
// the window end one microsecond before the following Monday.
func WeekRange(t time.Time) (time.Time, time.Time) {
	day := t.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	diff := (int(start.Weekday()) - int(time.Monday) + 7) % 7
	weekStart := start.AddDate(0, 0, -diff)
	return weekStart, weekStart.AddDate(0, 0, 7).Add(-time.Microsecond)
}

// WeeklyTop ranks users by total distance over the current week, ties broken
// by the smaller total duration. Runs count toward the week their end time
// falls into.
func (r *Ranking) WeeklyTop(ctx context.Context, n int) ([]RankingEntry, error) {
	if n < 1 {
		n = 10
	}
	weekStart, weekEnd := WeekRange(r.now())

	rows, err := r.runs.TotalsByUser(ctx, weekStart, weekEnd, n)
	if err != nil {
		return nil, err
	}

	entries := make([]RankingEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, RankingEntry{
			Username:             row.Username,
			AvatarURL:            row.AvatarURL,
			TotalDistanceKm:      round2(row.TotalDistanceKm),
			TotalDurationSeconds: row.TotalDurationSeconds,
			TotalTimeFormatted:   FormatDuration(row.TotalDurationSeconds),
		})
	}
	return entries, nil
}

// FormatDuration renders a second count as HH:MM:SS, hours uncapped.
func FormatDuration(seconds float64) string {
	total := int64(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
