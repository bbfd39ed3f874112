package domain

import (
	"context"
	"errors"
	"time"
)

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	ChallengeStatusDraft     ChallengeStatus = "draft"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusCancelled ChallengeStatus = "cancelled"
)

// ParticipantStatus is the per-user state within one challenge.
type ParticipantStatus string

const (
	ParticipantStatusInProgress ParticipantStatus = "in_progress"
	ParticipantStatusCompleted  ParticipantStatus = "completed"
	ParticipantStatusFailed     ParticipantStatus = "failed"
	ParticipantStatusWithdrawn  ParticipantStatus = "withdrawn"
)

// Challenge is a time-boxed, distance-targeted group activity. Created by an
// external admin flow; this service only maintains the participant counter.
type Challenge struct {
	ID                int64
	CreatorID         string
	Title             string
	Description       string
	ImageURL          *string
	TargetDistanceKm  float64
	TargetDays        *int // nil = fixed window, set = rolling window from join
	StartDate         time.Time
	EndDate           time.Time
	RewardDescription *string
	RewardFileURL     *string
	Status            ChallengeStatus
	ParticipantCount  int
	CreatedAt         time.Time
}

// Participant is a user's membership and progress record within a challenge.
type Participant struct {
	ID                  int64
	ChallengeID         int64
	UserID              string
	CompletedDistanceKm float64
	ProgressPercent     float64
	JoinedAt            time.Time
	PersonalDeadline    *time.Time
	CompletedAt         *time.Time
	Status              ParticipantStatus
	RewardClaimed       bool
}

// Participation pairs a participant row with its parent challenge.
type Participation struct {
	Participant
	Challenge Challenge
}

// JoinResult reports the outcome of a join attempt. Refusals are results,
// not errors, so callers can tell "not found" from "already joined".
type JoinResult struct {
	Joined bool
	Reason string
}

// ChallengeRepository captures challenge and participant persistence.
type ChallengeRepository interface {
	Get(ctx context.Context, challengeID int64) (*Challenge, error)
	Participant(ctx context.Context, challengeID int64, userID string) (*Participant, error)
	// AddParticipant inserts the row and increments the parent's participant
	// counter in one transaction. Returns ErrAlreadyJoined when the
	// (challenge, user) pair already exists.
	AddParticipant(ctx context.Context, p *Participant) error
	ListActive(ctx context.Context) ([]Challenge, error)
	ListForUser(ctx context.Context, userID string) ([]Participation, error)
}

// Challenges manages challenge membership and listings.
type Challenges struct {
	repo ChallengeRepository
}

// NewChallenges constructs a Challenges service.
func NewChallenges(repo ChallengeRepository) *Challenges {
	return &Challenges{repo: repo}
}

// Join enrolls the user in an active challenge.
func (c *Challenges) Join(ctx context.Context, userID string, challengeID int64) (*JoinResult, error) {
	challenge, err := c.repo.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return &JoinResult{Reason: "challenge not found"}, nil
	}
	if challenge.Status != ChallengeStatusActive {
		return &JoinResult{Reason: "challenge is not open for joining"}, nil
	}

	existing, err := c.repo.Participant(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &JoinResult{Reason: "already participating in this challenge"}, nil
	}

	now := time.Now().UTC()
	participant := &Participant{
		ChallengeID: challengeID,
		UserID:      userID,
		JoinedAt:    now,
		Status:      ParticipantStatusInProgress,
	}
	if challenge.TargetDays != nil {
		deadline := now.AddDate(0, 0, *challenge.TargetDays)
		participant.PersonalDeadline = &deadline
	}

	if err := c.repo.AddParticipant(ctx, participant); err != nil {
		// The unique (challenge_id, user_id) constraint closes the race
		// between the existence check above and the insert.
		if errors.Is(err, ErrAlreadyJoined) {
			return &JoinResult{Reason: "already participating in this challenge"}, nil
		}
		return nil, err
	}

	return &JoinResult{Joined: true}, nil
}

// ActiveChallenges lists open challenges, newest start date first.
func (c *Challenges) ActiveChallenges(ctx context.Context) ([]Challenge, error) {
	return c.repo.ListActive(ctx)
}

// MyChallenges lists the user's participations, most recent join first, each
// carrying a progress percentage against the parent challenge's target.
func (c *Challenges) MyChallenges(ctx context.Context, userID string) ([]Participation, error) {
	participations, err := c.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range participations {
		p := &participations[i]
		p.ProgressPercent = clampPercent(p.CompletedDistanceKm, p.Challenge.TargetDistanceKm)
	}
	return participations, nil
}
