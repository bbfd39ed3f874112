package api

import (
	"time"

	"example.com/runtrack/internal/domain"
)

// RecordRunRequest is the payload for POST /v1/runs.
type RecordRunRequest struct {
	DistanceKm      float64   `json:"distance_km" validate:"gte=0"`
	DurationSeconds float64   `json:"duration_seconds" validate:"gte=0"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required"`
	RouteJSON       string    `json:"route_json"`
}

// RecordRunResponse describes the response body for a recorded run.
type RecordRunResponse struct {
	RunID          int64   `json:"run_id"`
	DistanceKm     float64 `json:"distance_km"`
	CaloriesBurned float64 `json:"calories_burned"`
	Message        string  `json:"message"`
}

// SetGoalRequest is the payload for PUT /v1/goals/today.
type SetGoalRequest struct {
	TargetDistanceKm float64 `json:"target_distance_km" validate:"gt=0,lte=1000"`
}

// GoalView is the response shape for daily goals.
type GoalView struct {
	GoalID           int64     `json:"goal_id"`
	Date             time.Time `json:"date"`
	TargetDistanceKm float64   `json:"target_distance_km"`
}

// RunSummaryView is one history row; the route payload is deliberately absent.
type RunSummaryView struct {
	RunID           int64     `json:"run_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DistanceKm      float64   `json:"distance_km"`
	DurationSeconds float64   `json:"duration_seconds"`
	CaloriesBurned  float64   `json:"calories_burned"`
}

// RunDetailView is a single run including its route payload.
type RunDetailView struct {
	RunSummaryView
	RouteJSON string `json:"route_json"`
}

// DailyStatsView reports one day's totals against the day's goal.
type DailyStatsView struct {
	TotalDistanceKm  float64 `json:"total_distance_km"`
	TotalCalories    float64 `json:"total_calories"`
	TargetDistanceKm float64 `json:"target_distance_km"`
	ProgressPercent  float64 `json:"progress_percent"`
}

// DayRollupView is one aggregated calendar day.
type DayRollupView struct {
	Day             time.Time `json:"day"`
	DistanceKm      float64   `json:"distance_km"`
	DurationSeconds float64   `json:"duration_seconds"`
	CaloriesBurned  float64   `json:"calories_burned"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

// EffortView annotates a run with goal-relative progress.
type EffortView struct {
	RunSummaryView
	TargetDistanceKm float64 `json:"target_distance_km"`
	ProgressPercent  float64 `json:"progress_percent"`
}

// RankingView is one weekly leaderboard row.
type RankingView struct {
	Username             string  `json:"username"`
	AvatarURL            *string `json:"avatar_url,omitempty"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
	TotalTimeFormatted   string  `json:"total_time"`
}

// ChallengeView is the public projection of a challenge (no participant list).
type ChallengeView struct {
	ChallengeID       int64     `json:"challenge_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ImageURL          *string   `json:"image_url,omitempty"`
	TargetDistanceKm  float64   `json:"target_distance_km"`
	TargetDays        *int      `json:"target_days,omitempty"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	RewardDescription *string   `json:"reward_description,omitempty"`
	RewardFileURL     *string   `json:"reward_file_url,omitempty"`
	Status            string    `json:"status"`
	ParticipantCount  int       `json:"participant_count"`
}

// ParticipationView is one of the caller's challenge memberships.
type ParticipationView struct {
	ParticipantID       int64         `json:"participant_id"`
	ChallengeID         int64         `json:"challenge_id"`
	CompletedDistanceKm float64       `json:"completed_distance_km"`
	ProgressPercent     float64       `json:"progress_percent"`
	JoinedAt            time.Time     `json:"joined_at"`
	PersonalDeadline    *time.Time    `json:"personal_deadline,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	Status              string        `json:"status"`
	RewardClaimed       bool          `json:"reward_claimed"`
	Challenge           ChallengeView `json:"challenge"`
}

// JoinResponse reports the outcome of a join attempt.
type JoinResponse struct {
	Joined bool   `json:"joined"`
	Reason string `json:"reason,omitempty"`
}

func toRunSummaryView(run domain.RunSummary) RunSummaryView {
	return RunSummaryView{
		RunID:           run.ID,
		StartTime:       run.StartTime,
		EndTime:         run.EndTime,
		DistanceKm:      run.DistanceKm,
		DurationSeconds: run.DurationSeconds,
		CaloriesBurned:  run.CaloriesBurned,
	}
}

func toChallengeView(c domain.Challenge) ChallengeView {
	return ChallengeView{
		ChallengeID:       c.ID,
		Title:             c.Title,
		Description:       c.Description,
		ImageURL:          c.ImageURL,
		TargetDistanceKm:  c.TargetDistanceKm,
		TargetDays:        c.TargetDays,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		RewardDescription: c.RewardDescription,
		RewardFileURL:     c.RewardFileURL,
		Status:            string(c.Status),
		ParticipantCount:  c.ParticipantCount,
	}
}

func toParticipationView(p domain.Participation) ParticipationView {
	return ParticipationView{
		ParticipantID:       p.ID,
		ChallengeID:         p.ChallengeID,
		CompletedDistanceKm: p.CompletedDistanceKm,
		ProgressPercent:     p.ProgressPercent,
		JoinedAt:            p.JoinedAt,
		PersonalDeadline:    p.PersonalDeadline,
		CompletedAt:         p.CompletedAt,
		Status:              string(p.Status),
		RewardClaimed:       p.RewardClaimed,
		Challenge:           toChallengeView(p.Challenge),
	}
}
