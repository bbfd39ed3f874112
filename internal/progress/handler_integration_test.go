//go:build integration

package progress

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/runtrack/internal/events"
)

func TestHandleCompletesParticipationAtTarget(t *testing.T) {
	ctx := context.Background()
	pool := setupProgressDatabase(t, ctx)

	userID := seedRunner(t, ctx, pool)
	challengeID := seedActiveChallenge(t, ctx, pool, userID, 10)
	seedParticipation(t, ctx, pool, challengeID, userID, 8, 80)

	handler := NewChallengeHandler(pool)
	require.NoError(t, handler.Handle(ctx, runRecordedMessage(t, userID, 3)))

	var (
		completed   float64
		percent     float64
		status      string
		completedAt *time.Time
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT completed_distance_km, progress_percent, status, completed_at
           FROM challenge_participants WHERE challenge_id=$1 AND user_id=$2`,
		challengeID, userID,
	).Scan(&completed, &percent, &status, &completedAt))

	require.InDelta(t, 11, completed, 1e-9)
	require.InDelta(t, 100, percent, 1e-9)
	require.Equal(t, "completed", status)
	require.NotNil(t, completedAt, "reaching the target must stamp completed_at")
	require.WithinDuration(t, time.Now().UTC(), completedAt.UTC(), time.Minute)
}

func TestHandleLeavesPartialProgressOpen(t *testing.T) {
	ctx := context.Background()
	pool := setupProgressDatabase(t, ctx)

	userID := seedRunner(t, ctx, pool)
	challengeID := seedActiveChallenge(t, ctx, pool, userID, 10)
	seedParticipation(t, ctx, pool, challengeID, userID, 0, 0)

	handler := NewChallengeHandler(pool)
	require.NoError(t, handler.Handle(ctx, runRecordedMessage(t, userID, 4)))

	var (
		status      string
		completedAt *time.Time
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, completed_at FROM challenge_participants WHERE challenge_id=$1 AND user_id=$2`,
		challengeID, userID,
	).Scan(&status, &completedAt))

	require.Equal(t, "in_progress", status)
	require.Nil(t, completedAt)
}

func TestHandleSkipsZeroTargetChallenge(t *testing.T) {
	ctx := context.Background()
	pool := setupProgressDatabase(t, ctx)

	userID := seedRunner(t, ctx, pool)
	challengeID := seedActiveChallenge(t, ctx, pool, userID, 0)
	seedParticipation(t, ctx, pool, challengeID, userID, 0, 0)

	handler := NewChallengeHandler(pool)
	require.NoError(t, handler.Handle(ctx, runRecordedMessage(t, userID, 5)))

	var (
		completed float64
		status    string
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT completed_distance_km, status FROM challenge_participants WHERE challenge_id=$1 AND user_id=$2`,
		challengeID, userID,
	).Scan(&completed, &status))

	require.Zero(t, completed, "a zero-target challenge must not accumulate progress")
	require.Equal(t, "in_progress", status)
}

func runRecordedMessage(t *testing.T, userID string, distanceKm float64) Message {
	t.Helper()

	now := time.Now().UTC()
	payload, err := json.Marshal(events.RunRecorded{
		RunID:           1,
		UserID:          userID,
		DistanceKm:      distanceKm,
		DurationSeconds: 1800,
		StartTime:       now.Add(-30 * time.Minute),
		EndTime:         now,
		RecordedAt:      now,
	})
	require.NoError(t, err)

	return Message{
		Topic:     events.TopicRunEvents,
		EventType: events.TypeRunRecorded,
		Payload:   payload,
	}
}

func setupProgressDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("runtrack"),
		postgrescontainer.WithUsername("runtrack"),
		postgrescontainer.WithPassword("runtrack"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	deadline := time.Now().Add(30 * time.Second)
	for pool.Ping(ctx) != nil {
		require.True(t, time.Now().Before(deadline), "database never became ready")
		time.Sleep(time.Second)
	}

	schema, err := os.ReadFile(migrationPath(t, "0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	return pool
}

func migrationPath(t *testing.T, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "../../db/postgres/migrations", name)
}

func seedRunner(t *testing.T, ctx context.Context, pool *pgxpool.Pool) string {
	t.Helper()

	userID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO users (user_id, username, weight_kg) VALUES ($1, $2, 70)`,
		userID, "runner-"+userID[:8],
	)
	require.NoError(t, err)
	return userID
}

func seedActiveChallenge(t *testing.T, ctx context.Context, pool *pgxpool.Pool, creatorID string, targetKm float64) int64 {
	t.Helper()

	var challengeID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO challenges (creator_id, title, target_distance_km, start_date, end_date, status)
         VALUES ($1, 'November 100K', $2, NOW() - INTERVAL '1 day', NOW() + INTERVAL '30 days', 'active')
         RETURNING challenge_id`,
		creatorID, targetKm,
	).Scan(&challengeID)
	require.NoError(t, err)
	return challengeID
}

func seedParticipation(t *testing.T, ctx context.Context, pool *pgxpool.Pool, challengeID int64, userID string, completedKm, percent float64) {
	t.Helper()

	_, err := pool.Exec(ctx,
		`INSERT INTO challenge_participants (challenge_id, user_id, completed_distance_km, progress_percent)
         VALUES ($1, $2, $3, $4)`,
		challengeID, userID, completedKm, percent,
	)
	require.NoError(t, err)
}
