// Package api exposes HTTP handlers for the run tracking service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/runtrack/internal/auth"
	"example.com/runtrack/internal/domain"
	"example.com/runtrack/internal/observability"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	recorder   *domain.Recorder
	aggregator *domain.Aggregator
	ranking    *domain.Ranking
	challenges *domain.Challenges
	goals      *domain.Goals
	validate   *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(recorder *domain.Recorder, aggregator *domain.Aggregator, ranking *domain.Ranking, challenges *domain.Challenges, goals *domain.Goals) *Handler {
	return &Handler{
		recorder:   recorder,
		aggregator: aggregator,
		ranking:    ranking,
		challenges: challenges,
		goals:      goals,
		validate:   validator.New(),
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/runs", h.runs)
	mux.HandleFunc("/v1/runs/", h.runByID)
	mux.HandleFunc("/v1/runs/stats/daily", h.dailyStats)
	mux.HandleFunc("/v1/runs/stats/monthly", h.monthlyRollup)
	mux.HandleFunc("/v1/runs/stats/weekly", h.weeklySessions)
	mux.HandleFunc("/v1/runs/stats/top", h.topEfforts)
	mux.HandleFunc("/v1/runs/stats/effort", h.relativeEffort)
	mux.HandleFunc("/v1/leaderboard/weekly", h.weeklyLeaderboard)
	mux.HandleFunc("/v1/goals/today", h.todayGoal)
	mux.HandleFunc("/v1/challenges", h.listChallenges)
	mux.HandleFunc("/v1/challenges/", h.challengeAction)
	mux.HandleFunc("/v1/challenges/mine", h.myChallenges)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) runs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordRun(w, r)
	case http.MethodGet:
		h.runHistory(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) recordRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsWrite)
	if !ok {
		return
	}

	var req RecordRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationDetail(err))
		return
	}

	result, err := h.recorder.RecordRun(r.Context(), userID, domain.RunInput{
		DistanceKm:      req.DistanceKm,
		DurationSeconds: req.DurationSeconds,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		RouteJSON:       req.RouteJSON,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", "failed to record run")
		return
	}

	writeJSON(w, http.StatusCreated, RecordRunResponse{
		RunID:          result.ID,
		DistanceKm:     result.DistanceKm,
		CaloriesBurned: result.CaloriesBurned,
		Message:        result.Message,
	})
}

func (h *Handler) runHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	if pageSize > 100 {
		pageSize = 100
	}

	runs, err := h.aggregator.History(r.Context(), userID, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to list runs")
		return
	}

	items := make([]RunSummaryView, 0, len(runs))
	for _, run := range runs {
		items = append(items, toRunSummaryView(run))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "page": page, "page_size": pageSize})
}

func (h *Handler) runByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}

	rawID := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	runID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid run id")
		return
	}

	run, err := h.aggregator.RunDetail(r.Context(), runID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "run session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, RunDetailView{
		RunSummaryView: RunSummaryView{
			RunID:           run.ID,
			StartTime:       run.StartTime,
			EndTime:         run.EndTime,
			DistanceKm:      run.DistanceKm,
			DurationSeconds: run.DurationSeconds,
			CaloriesBurned:  run.CaloriesBurned,
		},
		RouteJSON: run.RouteJSON,
	})
}

func (h *Handler) dailyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}

	stats, err := h.aggregator.DailyStats(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to compute daily stats")
		return
	}
	writeJSON(w, http.StatusOK, DailyStatsView{
		TotalDistanceKm:  stats.TotalDistanceKm,
		TotalCalories:    stats.TotalCalories,
		TargetDistanceKm: stats.TargetDistanceKm,
		ProgressPercent:  stats.ProgressPercent,
	})
}

func (h *Handler) monthlyRollup(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}
	month, year, valid := monthYearParams(r)
	if !valid {
		writeError(w, http.StatusBadRequest, "validation_failed", "month must be 1-12 and year a four digit number")
		return
	}

	rollups, err := h.aggregator.MonthlyRollup(r.Context(), userID, month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to compute monthly rollup")
		return
	}

	items := make([]DayRollupView, 0, len(rollups))
	for _, day := range rollups {
		items = append(items, DayRollupView{
			Day:             day.Day,
			DistanceKm:      day.DistanceKm,
			DurationSeconds: day.DurationSeconds,
			CaloriesBurned:  day.CaloriesBurned,
			StartTime:       day.StartTime,
			EndTime:         day.EndTime,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) weeklySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}
	month, year, valid := monthYearParams(r)
	if !valid {
		writeError(w, http.StatusBadRequest, "validation_failed", "month must be 1-12 and year a four digit number")
		return
	}

	runs, err := h.aggregator.WeeklySessions(r.Context(), userID, month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to list sessions")
		return
	}

	items := make([]RunSummaryView, 0, len(runs))
	for _, run := range runs {
		items = append(items, toRunSummaryView(run))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) topEfforts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}

	runs, err := h.aggregator.TopEfforts(r.Context(), userID, queryInt(r, "limit", 2))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to list top efforts")
		return
	}

	items := make([]RunSummaryView, 0, len(runs))
	for _, run := range runs {
		items = append(items, toRunSummaryView(run))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) relativeEffort(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}

	entries, err := h.aggregator.RelativeEffort(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to compute relative effort")
		return
	}

	items := make([]EffortView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, EffortView{
			RunSummaryView:   toRunSummaryView(entry.RunSummary),
			TargetDistanceKm: entry.TargetKm,
			ProgressPercent:  entry.ProgressPercent,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) weeklyLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireScope(w, r, auth.ScopeRunsRead); !ok {
		return
	}

	start := time.Now()
	entries, err := h.ranking.WeeklyTop(r.Context(), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to compute leaderboard")
		return
	}
	observability.ObserveLeaderboardQuery(time.Since(start))

	items := make([]RankingView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, RankingView{
			Username:             entry.Username,
			AvatarURL:            entry.AvatarURL,
			TotalDistanceKm:      entry.TotalDistanceKm,
			TotalDurationSeconds: entry.TotalDurationSeconds,
			TotalTimeFormatted:   entry.TotalTimeFormatted,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) todayGoal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getTodayGoal(w, r)
	case http.MethodPut, http.MethodPost:
		h.setTodayGoal(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) getTodayGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeRunsRead)
	if !ok {
		return
	}

	goal, err := h.goals.TodayGoal(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load goal")
		return
	}
	if goal == nil {
		// No goal set yet; an explicit null lets clients show the "set a goal" state.
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, GoalView{GoalID: goal.ID, Date: goal.Date, TargetDistanceKm: goal.TargetDistanceKm})
}

func (h *Handler) setTodayGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireScope(w, r, auth.ScopeGoalsWrite)
	if !ok {
		return
	}

	var req SetGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationDetail(err))
		return
	}

	goal, err := h.goals.SetTodayGoal(r.Context(), userID, req.TargetDistanceKm)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", "failed to save goal")
		return
	}
	writeJSON(w, http.StatusOK, GoalView{GoalID: goal.ID, Date: goal.Date, TargetDistanceKm: goal.TargetDistanceKm})
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := h.requireScope(w, r, auth.ScopeChallengesRead); !ok {
		return
	}

	challenges, err := h.challenges.ActiveChallenges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to list challenges")
		return
	}

	items := make([]ChallengeView, 0, len(challenges))
	for _, challenge := range challenges {
		items = append(items, toChallengeView(challenge))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) myChallenges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	userID, ok := h.requireScope(w, r, auth.ScopeChallengesRead)
	if !ok {
		return
	}

	participations, err := h.challenges.MyChallenges(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to list participations")
		return
	}

	items := make([]ParticipationView, 0, len(participations))
	for _, p := range participations {
		items = append(items, toParticipationView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) challengeAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/challenges/")
	rawID, action, found := strings.Cut(rest, "/")
	if !found || action != "join" {
		writeError(w, http.StatusNotFound, "not_found", "unknown challenge operation")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	userID, ok := h.requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	challengeID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid challenge id")
		return
	}

	result, err := h.challenges.Join(r.Context(), userID, challengeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to join challenge")
		return
	}
	writeJSON(w, http.StatusOK, JoinResponse{Joined: result.Joined, Reason: result.Reason})
}

// requireScope resolves the caller's user id and checks a scope, writing the
// error response itself when the request must not proceed.
func (h *Handler) requireScope(w http.ResponseWriter, r *http.Request, scope string) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return "", false
	}
	return claims.Subject, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func monthYearParams(r *http.Request) (time.Month, int, bool) {
	month := queryInt(r, "month", 0)
	year := queryInt(r, "year", 0)
	if month < 1 || month > 12 || year < 1000 || year > 9999 {
		return 0, 0, false
	}
	return time.Month(month), year, true
}

// validationDetail flattens validator errors into a field-keyed message.
func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(details, "; ")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
