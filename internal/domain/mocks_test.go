package domain

import (
	"context"
	"time"
)

type stubUserRepo struct {
	user *User
	err  error
}

func (s *stubUserRepo) Find(ctx context.Context, userID string) (*User, error) {
	return s.user, s.err
}

type stubRunRepo struct {
	created *RunSession
	nextID  int64

	run      *RunSession
	page     []RunSummary
	rollups  []DayRollup
	sessions []RunSummary
	top      []RunSummary
	linked   []GoalLinkedRun
	totals   []LeaderboardRow

	dayDistance float64
	dayCalories float64

	gotOffset int
	gotLimit  int
	gotFrom   time.Time
	gotTo     time.Time

	err error
}

func (s *stubRunRepo) Create(ctx context.Context, run *RunSession) error {
	if s.err != nil {
		return s.err
	}
	run.ID = s.nextID
	s.created = run
	return nil
}

func (s *stubRunRepo) Get(ctx context.Context, runID int64, userID string) (*RunSession, error) {
	return s.run, s.err
}

func (s *stubRunRepo) ListPage(ctx context.Context, userID string, offset, limit int) ([]RunSummary, error) {
	s.gotOffset, s.gotLimit = offset, limit
	return s.page, s.err
}

func (s *stubRunRepo) DayTotals(ctx context.Context, userID string, from, to time.Time) (float64, float64, error) {
	s.gotFrom, s.gotTo = from, to
	return s.dayDistance, s.dayCalories, s.err
}

func (s *stubRunRepo) DailyRollups(ctx context.Context, userID string, from, to time.Time) ([]DayRollup, error) {
	s.gotFrom, s.gotTo = from, to
	return s.rollups, s.err
}

func (s *stubRunRepo) ListByEndTime(ctx context.Context, userID string, from, to time.Time) ([]RunSummary, error) {
	s.gotFrom, s.gotTo = from, to
	return s.sessions, s.err
}

func (s *stubRunRepo) TopByDistance(ctx context.Context, userID string, limit int) ([]RunSummary, error) {
	s.gotLimit = limit
	return s.top, s.err
}

func (s *stubRunRepo) ListWithGoalTargets(ctx context.Context, userID string) ([]GoalLinkedRun, error) {
	return s.linked, s.err
}

func (s *stubRunRepo) TotalsByUser(ctx context.Context, from, to time.Time, limit int) ([]LeaderboardRow, error) {
	s.gotFrom, s.gotTo = from, to
	s.gotLimit = limit
	return s.totals, s.err
}

type stubGoalRepo struct {
	latest   *DailyGoal
	forDate  *DailyGoal
	upserted *DailyGoal

	gotDay    time.Time
	gotTarget float64

	err error
}

func (s *stubGoalRepo) Latest(ctx context.Context, userID string) (*DailyGoal, error) {
	return s.latest, s.err
}

func (s *stubGoalRepo) ForDate(ctx context.Context, userID string, day time.Time) (*DailyGoal, error) {
	s.gotDay = day
	return s.forDate, s.err
}

func (s *stubGoalRepo) Upsert(ctx context.Context, userID string, day time.Time, targetKm float64) (*DailyGoal, error) {
	s.gotDay, s.gotTarget = day, targetKm
	if s.upserted != nil {
		return s.upserted, s.err
	}
	return &DailyGoal{ID: 1, UserID: userID, Date: day, TargetDistanceKm: targetKm}, s.err
}

type stubChallengeRepo struct {
	challenge   *Challenge
	participant *Participant
	active      []Challenge
	mine        []Participation

	added  *Participant
	addErr error

	err error
}

func (s *stubChallengeRepo) Get(ctx context.Context, challengeID int64) (*Challenge, error) {
	return s.challenge, s.err
}

func (s *stubChallengeRepo) Participant(ctx context.Context, challengeID int64, userID string) (*Participant, error) {
	return s.participant, s.err
}

func (s *stubChallengeRepo) AddParticipant(ctx context.Context, p *Participant) error {
	if s.addErr != nil {
		return s.addErr
	}
	p.ID = 11
	s.added = p
	return nil
}

func (s *stubChallengeRepo) ListActive(ctx context.Context) ([]Challenge, error) {
	return s.active, s.err
}

func (s *stubChallengeRepo) ListForUser(ctx context.Context, userID string) ([]Participation, error) {
	return s.mine, s.err
}
