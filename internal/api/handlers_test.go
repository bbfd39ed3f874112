package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/runtrack/internal/auth"
	"example.com/runtrack/internal/domain"
)

func newTestHandler(users *fakeUsers, runs *fakeRuns, goals *fakeGoals, challenges *fakeChallenges) *Handler {
	if users == nil {
		users = &fakeUsers{}
	}
	if runs == nil {
		runs = &fakeRuns{}
	}
	if goals == nil {
		goals = &fakeGoals{}
	}
	if challenges == nil {
		challenges = &fakeChallenges{}
	}
	return NewHandler(
		domain.NewRecorder(users, runs, goals),
		domain.NewAggregator(runs, goals),
		domain.NewRanking(runs),
		domain.NewChallenges(challenges),
		domain.NewGoals(goals),
	)
}

func authed(req *http.Request, scopes ...string) *http.Request {
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}
	claims := &auth.Claims{
		Subject:   "runner-1",
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestRecordRunSuccess(t *testing.T) {
	users := &fakeUsers{user: &domain.User{ID: "runner-1", WeightKg: 70}}
	runs := &fakeRuns{nextID: 42}
	handler := newTestHandler(users, runs, nil, nil)

	body := `{"distance_km":5,"duration_seconds":1800,"start_time":"2025-11-03T07:00:00Z","end_time":"2025-11-03T07:30:00Z"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(body)), auth.ScopeRunsWrite)
	rr := httptest.NewRecorder()
	handler.recordRun(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RecordRunResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RunID != 42 {
		t.Fatalf("expected run id 42 got %d", resp.RunID)
	}
	if resp.CaloriesBurned != 362.6 {
		t.Fatalf("expected 362.6 kcal got %f", resp.CaloriesBurned)
	}
	if resp.Message != "run session saved" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestRecordRunRejectsMissingTimes(t *testing.T) {
	handler := newTestHandler(&fakeUsers{user: &domain.User{ID: "runner-1"}}, nil, nil, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"distance_km":5}`)), auth.ScopeRunsWrite)
	rr := httptest.NewRecorder()
	handler.recordRun(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestRecordRunUnknownUser(t *testing.T) {
	handler := newTestHandler(&fakeUsers{}, nil, nil, nil)

	body := `{"distance_km":5,"duration_seconds":1800,"start_time":"2025-11-03T07:00:00Z","end_time":"2025-11-03T07:30:00Z"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(body)), auth.ScopeRunsWrite)
	rr := httptest.NewRecorder()
	handler.recordRun(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestRecordRunRequiresScope(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{}`)), auth.ScopeRunsRead)
	rr := httptest.NewRecorder()
	handler.recordRun(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRecordRunRequiresClaims(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler.recordRun(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestRunByIDNotFound(t *testing.T) {
	handler := newTestHandler(nil, &fakeRuns{}, nil, nil)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/runs/999", nil), auth.ScopeRunsRead)
	rr := httptest.NewRecorder()
	handler.runByID(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestRunByIDReturnsRoute(t *testing.T) {
	start := time.Date(2025, time.November, 3, 7, 0, 0, 0, time.UTC)
	runs := &fakeRuns{run: &domain.RunSession{
		ID:              7,
		UserID:          "runner-1",
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		DistanceKm:      5,
		DurationSeconds: 1800,
		CaloriesBurned:  362.6,
		RouteJSON:       `[{"lat":52.52,"lng":13.405}]`,
	}}
	handler := newTestHandler(nil, runs, nil, nil)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/runs/7", nil), auth.ScopeRunsRead)
	rr := httptest.NewRecorder()
	handler.runByID(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp RunDetailView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RunID != 7 || resp.RouteJSON == "" {
		t.Fatalf("unexpected detail %+v", resp)
	}
}

func TestMonthlyRollupValidatesParams(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/runs/stats/monthly?month=13&year=2025", nil), auth.ScopeRunsRead)
	rr := httptest.NewRecorder()
	handler.monthlyRollup(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestGetTodayGoalNull(t *testing.T) {
	handler := newTestHandler(nil, nil, &fakeGoals{}, nil)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/goals/today", nil), auth.ScopeRunsRead)
	rr := httptest.NewRecorder()
	handler.getTodayGoal(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "null" {
		t.Fatalf("expected explicit null body got %q", rr.Body.String())
	}
}

func TestSetTodayGoalRoundTrip(t *testing.T) {
	goals := &fakeGoals{}
	handler := newTestHandler(nil, nil, goals, nil)

	req := authed(httptest.NewRequest(http.MethodPut, "/v1/goals/today", strings.NewReader(`{"target_distance_km":12.5}`)), auth.ScopeGoalsWrite)
	rr := httptest.NewRecorder()
	handler.setTodayGoal(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp GoalView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TargetDistanceKm != 12.5 {
		t.Fatalf("expected 12.5 got %f", resp.TargetDistanceKm)
	}
}

func TestSetTodayGoalRejectsExcessiveTarget(t *testing.T) {
	handler := newTestHandler(nil, nil, &fakeGoals{}, nil)

	req := authed(httptest.NewRequest(http.MethodPut, "/v1/goals/today", strings.NewReader(`{"target_distance_km":1500}`)), auth.ScopeGoalsWrite)
	rr := httptest.NewRecorder()
	handler.setTodayGoal(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestJoinChallengeRefusalIsOK(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, &fakeChallenges{})

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/challenges/5/join", nil), auth.ScopeChallengesWrite)
	rr := httptest.NewRecorder()
	handler.challengeAction(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp JoinResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Joined {
		t.Fatalf("expected refusal for missing challenge")
	}
	if resp.Reason != "challenge not found" {
		t.Fatalf("unexpected reason %q", resp.Reason)
	}
}

func TestJoinChallengeSuccess(t *testing.T) {
	challenges := &fakeChallenges{challenge: &domain.Challenge{
		ID:               5,
		TargetDistanceKm: 100,
		Status:           domain.ChallengeStatusActive,
	}}
	handler := newTestHandler(nil, nil, nil, challenges)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/challenges/5/join", nil), auth.ScopeChallengesWrite)
	rr := httptest.NewRecorder()
	handler.challengeAction(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp JoinResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Joined {
		t.Fatalf("expected join to succeed, reason %q", resp.Reason)
	}
}

func TestChallengeActionRejectsUnknownOperation(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/challenges/5/leave", nil), auth.ScopeChallengesWrite)
	rr := httptest.NewRecorder()
	handler.challengeAction(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestWeeklyLeaderboard(t *testing.T) {
	runs := &fakeRuns{totals: []domain.LeaderboardRow{
		{UserID: "u1", Username: "dana", TotalDistanceKm: 42.2, TotalDurationSeconds: 14400},
	}}
	handler := newTestHandler(nil, runs, nil, nil)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/leaderboard/weekly", nil), auth.ScopeRunsRead)
	rr := httptest.NewRecorder()
	handler.weeklyLeaderboard(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Items []RankingView `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Username != "dana" {
		t.Fatalf("unexpected leaderboard %+v", resp.Items)
	}
	if resp.Items[0].TotalTimeFormatted != "04:00:00" {
		t.Fatalf("unexpected formatted time %q", resp.Items[0].TotalTimeFormatted)
	}
}

type fakeUsers struct {
	user *domain.User
}

func (f *fakeUsers) Find(ctx context.Context, userID string) (*domain.User, error) {
	return f.user, nil
}

type fakeRuns struct {
	nextID int64
	run    *domain.RunSession
	page   []domain.RunSummary
	totals []domain.LeaderboardRow
}

func (f *fakeRuns) Create(ctx context.Context, run *domain.RunSession) error {
	run.ID = f.nextID
	return nil
}

func (f *fakeRuns) Get(ctx context.Context, runID int64, userID string) (*domain.RunSession, error) {
	if f.run != nil && f.run.ID == runID {
		return f.run, nil
	}
	return nil, nil
}

func (f *fakeRuns) ListPage(ctx context.Context, userID string, offset, limit int) ([]domain.RunSummary, error) {
	return f.page, nil
}

func (f *fakeRuns) DayTotals(ctx context.Context, userID string, from, to time.Time) (float64, float64, error) {
	return 0, 0, nil
}

func (f *fakeRuns) DailyRollups(ctx context.Context, userID string, from, to time.Time) ([]domain.DayRollup, error) {
	return nil, nil
}

func (f *fakeRuns) ListByEndTime(ctx context.Context, userID string, from, to time.Time) ([]domain.RunSummary, error) {
	return nil, nil
}

func (f *fakeRuns) TopByDistance(ctx context.Context, userID string, limit int) ([]domain.RunSummary, error) {
	return f.page, nil
}

func (f *fakeRuns) ListWithGoalTargets(ctx context.Context, userID string) ([]domain.GoalLinkedRun, error) {
	return nil, nil
}

func (f *fakeRuns) TotalsByUser(ctx context.Context, from, to time.Time, limit int) ([]domain.LeaderboardRow, error) {
	return f.totals, nil
}

type fakeGoals struct {
	goal *domain.DailyGoal
}

func (f *fakeGoals) Latest(ctx context.Context, userID string) (*domain.DailyGoal, error) {
	return f.goal, nil
}

func (f *fakeGoals) ForDate(ctx context.Context, userID string, day time.Time) (*domain.DailyGoal, error) {
	return f.goal, nil
}

func (f *fakeGoals) Upsert(ctx context.Context, userID string, day time.Time, targetKm float64) (*domain.DailyGoal, error) {
	f.goal = &domain.DailyGoal{ID: 1, UserID: userID, Date: day, TargetDistanceKm: targetKm}
	return f.goal, nil
}

type fakeChallenges struct {
	challenge   *domain.Challenge
	participant *domain.Participant
	mine        []domain.Participation
}

func (f *fakeChallenges) Get(ctx context.Context, challengeID int64) (*domain.Challenge, error) {
	return f.challenge, nil
}

func (f *fakeChallenges) Participant(ctx context.Context, challengeID int64, userID string) (*domain.Participant, error) {
	return f.participant, nil
}

func (f *fakeChallenges) AddParticipant(ctx context.Context, p *domain.Participant) error {
	p.ID = 11
	return nil
}

func (f *fakeChallenges) ListActive(ctx context.Context) ([]domain.Challenge, error) {
	if f.challenge == nil {
		return nil, nil
	}
	return []domain.Challenge{*f.challenge}, nil
}

func (f *fakeChallenges) ListForUser(ctx context.Context, userID string) ([]domain.Participation, error) {
	return f.mine, nil
}
