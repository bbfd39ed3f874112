package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"example.com/runtrack/internal/events"
	"example.com/runtrack/internal/logging"
)

// ChallengeHandler applies recorded runs to open challenge participations.
type ChallengeHandler struct {
	pool   *pgxpool.Pool
	logger *logrus.Entry
}

// NewChallengeHandler constructs a handler backed by the provided pool.
func NewChallengeHandler(pool *pgxpool.Pool) *ChallengeHandler {
	return &ChallengeHandler{pool: pool, logger: logging.New("progress")}
}

// Handle advances challenge progress for run.recorded events. Other event
// types are acknowledged without action.
func (h *ChallengeHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeRunRecorded {
		return nil
	}

	var event events.RunRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal run.recorded: %w", err)
	}
	if event.UserID == "" || event.DistanceKm <= 0 {
		return nil
	}

	// A run counts toward every in-progress participation whose challenge is
	// active and whose window contains the run's end time. The personal
	// deadline, when set, narrows the challenge-level end date. Challenges
	// with a non-positive target are skipped rather than divided by.
	const stmt = `
        UPDATE challenge_participants cp
           SET completed_distance_km = cp.completed_distance_km + $1,
               progress_percent = LEAST(100, (cp.completed_distance_km + $1) / c.target_distance_km * 100),
               status = CASE
                   WHEN cp.completed_distance_km + $1 >= c.target_distance_km THEN 'completed'
                   ELSE cp.status
               END,
               completed_at = CASE
                   WHEN cp.completed_distance_km + $1 >= c.target_distance_km THEN NOW()
                   ELSE cp.completed_at
               END,
               updated_at = NOW()
          FROM challenges c
         WHERE c.challenge_id = cp.challenge_id
           AND cp.user_id = $2
           AND cp.status = 'in_progress'
           AND c.status = 'active'
           AND c.target_distance_km > 0
           AND $3 >= c.start_date
           AND $3 <= COALESCE(cp.personal_deadline, c.end_date)`

	tag, err := h.pool.Exec(ctx, stmt, event.DistanceKm, event.UserID, event.EndTime)
	if err != nil {
		return fmt.Errorf("apply run to participations: %w", err)
	}
	if tag.RowsAffected() > 0 {
		recordParticipationsAdvanced(int(tag.RowsAffected()))
		h.logger.WithFields(logrus.Fields{
			"run_id":         event.RunID,
			"user_id":        event.UserID,
			"participations": tag.RowsAffected(),
		}).Info("challenge progress updated")
	}
	return nil
}
