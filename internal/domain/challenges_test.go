package domain

import (
	"context"
	"testing"
	"time"
)

func activeChallenge(days *int) *Challenge {
	return &Challenge{
		ID:               5,
		Title:            "November 100K",
		TargetDistanceKm: 100,
		TargetDays:       days,
		StartDate:        time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, time.November, 30, 23, 59, 59, 0, time.UTC),
		Status:           ChallengeStatusActive,
	}
}

func TestJoinActiveChallenge(t *testing.T) {
	repo := &stubChallengeRepo{challenge: activeChallenge(nil)}
	svc := NewChallenges(repo)

	result, err := svc.Join(context.Background(), "runner-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Joined {
		t.Fatalf("expected join to succeed, refusal: %q", result.Reason)
	}
	if repo.added == nil || repo.added.Status != ParticipantStatusInProgress {
		t.Fatalf("participant not persisted as in_progress: %+v", repo.added)
	}
	if repo.added.PersonalDeadline != nil {
		t.Fatalf("fixed-window challenge must not set a personal deadline")
	}
}

func TestJoinSetsPersonalDeadlineForRollingWindow(t *testing.T) {
	days := 30
	repo := &stubChallengeRepo{challenge: activeChallenge(&days)}
	svc := NewChallenges(repo)

	before := time.Now().UTC()
	result, err := svc.Join(context.Background(), "runner-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Joined {
		t.Fatalf("expected join to succeed, refusal: %q", result.Reason)
	}
	deadline := repo.added.PersonalDeadline
	if deadline == nil {
		t.Fatalf("expected a personal deadline")
	}
	want := before.AddDate(0, 0, 30)
	if deadline.Before(want.Add(-time.Minute)) || deadline.After(want.Add(time.Minute)) {
		t.Fatalf("deadline %v not ~30 days from join", deadline)
	}
}

func TestJoinRefusals(t *testing.T) {
	cases := []struct {
		name   string
		repo   *stubChallengeRepo
		reason string
	}{
		{"missing", &stubChallengeRepo{}, "challenge not found"},
		{"draft", &stubChallengeRepo{challenge: &Challenge{ID: 5, Status: ChallengeStatusDraft}}, "challenge is not open for joining"},
		{"completed", &stubChallengeRepo{challenge: &Challenge{ID: 5, Status: ChallengeStatusCompleted}}, "challenge is not open for joining"},
		{"cancelled", &stubChallengeRepo{challenge: &Challenge{ID: 5, Status: ChallengeStatusCancelled}}, "challenge is not open for joining"},
		{"already joined", &stubChallengeRepo{challenge: activeChallenge(nil), participant: &Participant{ID: 1}}, "already participating in this challenge"},
		{"insert race", &stubChallengeRepo{challenge: activeChallenge(nil), addErr: ErrAlreadyJoined}, "already participating in this challenge"},
	}

	for _, tc := range cases {
		result, err := NewChallenges(tc.repo).Join(context.Background(), "runner-1", 5)
		if err != nil {
			t.Fatalf("%s: refusals are results, not errors: %v", tc.name, err)
		}
		if result.Joined {
			t.Fatalf("%s: expected refusal", tc.name)
		}
		if result.Reason != tc.reason {
			t.Fatalf("%s: expected reason %q got %q", tc.name, tc.reason, result.Reason)
		}
	}
}

func TestMyChallengesClampsProgress(t *testing.T) {
	repo := &stubChallengeRepo{mine: []Participation{
		{Participant: Participant{CompletedDistanceKm: 120}, Challenge: Challenge{TargetDistanceKm: 100}},
		{Participant: Participant{CompletedDistanceKm: 40}, Challenge: Challenge{TargetDistanceKm: 100}},
	}}

	mine, err := NewChallenges(repo).MyChallenges(context.Background(), "runner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mine[0].ProgressPercent != 100 {
		t.Fatalf("expected clamp to 100 got %f", mine[0].ProgressPercent)
	}
	if mine[1].ProgressPercent != 40 {
		t.Fatalf("expected 40 got %f", mine[1].ProgressPercent)
	}
}
