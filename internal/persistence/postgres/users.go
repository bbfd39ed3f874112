package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtrack/internal/domain"
)

// Users reads external user records from Postgres.
type Users struct {
	pool *pgxpool.Pool
}

// NewUsers constructs a Users repository.
func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

// Find returns the user row or nil when absent.
func (r *Users) Find(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT user_id, username, avatar_url, weight_kg, total_distance_km, total_time_seconds
        FROM users WHERE user_id=$1`

	row := r.pool.QueryRow(ctx, query, userID)
	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.AvatarURL, &user.WeightKg, &user.TotalDistanceKm, &user.TotalTimeSeconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
