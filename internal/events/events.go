// Package events defines the payloads published through the outbox.
package events

import "time"

// Topic and event type names shared by the dispatcher and consumers.
const (
	TypeRunRecorded     = "run.recorded"
	TypeChallengeJoined = "challenge.joined"

	TopicRunEvents       = "run_events"
	TopicChallengeEvents = "challenge_events"
)

// RunRecorded is emitted when a finished run has been persisted.
type RunRecorded struct {
	RunID           int64     `json:"run_id"`
	UserID          string    `json:"user_id"`
	DistanceKm      float64   `json:"distance_km"`
	DurationSeconds float64   `json:"duration_seconds"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// ChallengeJoined is emitted when a participant row has been created.
type ChallengeJoined struct {
	ChallengeID   int64      `json:"challenge_id"`
	ParticipantID int64      `json:"participant_id"`
	UserID        string     `json:"user_id"`
	JoinedAt      time.Time  `json:"joined_at"`
	Deadline      *time.Time `json:"personal_deadline,omitempty"`
}
