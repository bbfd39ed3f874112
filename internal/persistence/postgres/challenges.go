package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtrack/internal/domain"
	"example.com/runtrack/internal/events"
	"example.com/runtrack/internal/observability"
)

const uniqueViolation = "23505"

// Challenges provides Postgres-backed persistence for challenges and participants.
type Challenges struct {
	pool *pgxpool.Pool
}

// NewChallenges constructs a Challenges repository.
func NewChallenges(pool *pgxpool.Pool) *Challenges {
	return &Challenges{pool: pool}
}

const challengeColumns = `challenge_id, creator_id, title, description, image_url,
    target_distance_km, target_days, start_date, end_date,
    reward_description, reward_file_url, status, participant_count, created_at`

// Get retrieves a challenge by id, nil when absent.
func (r *Challenges) Get(ctx context.Context, challengeID int64) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE challenge_id=$1`

	challenge, err := scanChallenge(r.pool.QueryRow(ctx, query, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return challenge, nil
}

// Participant returns the (challenge, user) row, nil when the user never joined.
func (r *Challenges) Participant(ctx context.Context, challengeID int64, userID string) (*domain.Participant, error) {
	const query = `SELECT participant_id, challenge_id, user_id, completed_distance_km, progress_percent,
            joined_at, personal_deadline, completed_at, status, reward_claimed
        FROM challenge_participants WHERE challenge_id=$1 AND user_id=$2`

	row := r.pool.QueryRow(ctx, query, challengeID, userID)
	var p domain.Participant
	if err := row.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.CompletedDistanceKm, &p.ProgressPercent,
		&p.JoinedAt, &p.PersonalDeadline, &p.CompletedAt, &p.Status, &p.RewardClaimed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// AddParticipant inserts the participant row, increments the challenge's
// counter with an SQL-level increment and records the challenge.joined
// outbox event, all in one transaction. A duplicate (challenge, user) pair
// surfaces as domain.ErrAlreadyJoined via the unique constraint.
func (r *Challenges) AddParticipant(ctx context.Context, p *domain.Participant) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insert = `INSERT INTO challenge_participants
            (challenge_id, user_id, completed_distance_km, progress_percent, joined_at, personal_deadline, status, reward_claimed)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING participant_id`

	err = tx.QueryRow(ctx, insert,
		p.ChallengeID,
		p.UserID,
		p.CompletedDistanceKm,
		p.ProgressPercent,
		p.JoinedAt,
		p.PersonalDeadline,
		p.Status,
		p.RewardClaimed,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = domain.ErrAlreadyJoined
		}
		return err
	}

	// Counter-as-command: the increment happens in the database, never as a
	// read-modify-write in application memory.
	if _, err = tx.Exec(ctx,
		`UPDATE challenges SET participant_count = participant_count + 1 WHERE challenge_id=$1`,
		p.ChallengeID,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "challenge", strconv.FormatInt(p.ChallengeID, 10), events.TypeChallengeJoined,
		strconv.FormatInt(p.ChallengeID, 10), events.ChallengeJoined{
			ChallengeID:   p.ChallengeID,
			ParticipantID: p.ID,
			UserID:        p.UserID,
			JoinedAt:      p.JoinedAt,
			Deadline:      p.PersonalDeadline,
		}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordChallengeJoin()
	return nil
}

// ListActive returns open challenges ordered by start date descending.
func (r *Challenges) ListActive(ctx context.Context) ([]domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + `
        FROM challenges WHERE status=$1
        ORDER BY start_date DESC`

	rows, err := r.pool.Query(ctx, query, domain.ChallengeStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := make([]domain.Challenge, 0)
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *challenge)
	}
	return challenges, rows.Err()
}

// ListForUser returns the user's participations with their parent challenge,
// ordered by join time descending.
func (r *Challenges) ListForUser(ctx context.Context, userID string) ([]domain.Participation, error) {
	const query = `SELECT p.participant_id, p.challenge_id, p.user_id, p.completed_distance_km, p.progress_percent,
            p.joined_at, p.personal_deadline, p.completed_at, p.status, p.reward_claimed,
            c.challenge_id, c.creator_id, c.title, c.description, c.image_url,
            c.target_distance_km, c.target_days, c.start_date, c.end_date,
            c.reward_description, c.reward_file_url, c.status, c.participant_count, c.created_at
        FROM challenge_participants p
        JOIN challenges c ON c.challenge_id = p.challenge_id
        WHERE p.user_id=$1
        ORDER BY p.joined_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participations := make([]domain.Participation, 0)
	for rows.Next() {
		var p domain.Participation
		if err := rows.Scan(
			&p.ID, &p.ChallengeID, &p.UserID, &p.CompletedDistanceKm, &p.ProgressPercent,
			&p.JoinedAt, &p.PersonalDeadline, &p.CompletedAt, &p.Status, &p.RewardClaimed,
			&p.Challenge.ID, &p.Challenge.CreatorID, &p.Challenge.Title, &p.Challenge.Description, &p.Challenge.ImageURL,
			&p.Challenge.TargetDistanceKm, &p.Challenge.TargetDays, &p.Challenge.StartDate, &p.Challenge.EndDate,
			&p.Challenge.RewardDescription, &p.Challenge.RewardFileURL, &p.Challenge.Status, &p.Challenge.ParticipantCount, &p.Challenge.CreatedAt,
		); err != nil {
			return nil, err
		}
		participations = append(participations, p)
	}
	return participations, rows.Err()
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	if err := row.Scan(&c.ID, &c.CreatorID, &c.Title, &c.Description, &c.ImageURL,
		&c.TargetDistanceKm, &c.TargetDays, &c.StartDate, &c.EndDate,
		&c.RewardDescription, &c.RewardFileURL, &c.Status, &c.ParticipantCount, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
