// Package domain defines the business logic for the run tracking service.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrUserNotFound is returned when the run owner cannot be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrRunNotFound is returned when a run does not exist or belongs to another user.
	ErrRunNotFound = errors.New("run session not found")
	// ErrAlreadyJoined signals a duplicate (challenge, user) participation insert.
	ErrAlreadyJoined = errors.New("already participating in challenge")
)

// ValidationError reports an out-of-range input value with field detail.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// User is the external identity record this service reads and whose lifetime
// totals it increments. All other user fields are owned elsewhere.
type User struct {
	ID               string
	Username         string
	AvatarURL        *string
	WeightKg         float64
	TotalDistanceKm  float64
	TotalTimeSeconds float64
}

// RunSession is one finished run. Immutable after creation.
type RunSession struct {
	ID              int64
	UserID          string
	StartTime       time.Time
	EndTime         time.Time
	DistanceKm      float64
	DurationSeconds float64
	CaloriesBurned  float64
	RouteJSON       string
	DailyGoalID     *int64
	CreatedAt       time.Time
}

// DailyGoal is a user-set target distance for one calendar day. Multiple rows
// per day may exist; the highest id wins wherever a single goal is needed.
type DailyGoal struct {
	ID               int64
	UserID           string
	Date             time.Time
	TargetDistanceKm float64
}

// sameCalendarDay compares the UTC calendar date of two instants.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// dayBounds returns the [00:00, next day 00:00) UTC window containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clampPercent maps completed/target to a percentage capped at 100.
// A non-positive target always yields 0.
func clampPercent(completed, target float64) float64 {
	if target <= 0 {
		return 0
	}
	pct := completed / target * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
