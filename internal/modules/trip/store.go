// README: Trip store backed by PostgreSQL; settlement moves credits and writes the ledger in one transaction.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"charterhub/internal/apperr"
	"charterhub/internal/types"
)

// ErrTripMoved means the trip left charter_completed before the settlement committed.
var ErrTripMoved = errors.New("trip changed during settlement")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, match_id, user_id, charter_id, address, lat, lng, workers_count,
		       scheduled_at, estimated_credits, status, charter_completed_at, completed_at,
		       created_at, updated_at
		FROM trips
		WHERE id = $1 AND deleted_at IS NULL`, string(id))

	var t Trip
	var credits int64
	err := row.Scan(
		&t.ID, &t.MatchID, &t.UserID, &t.CharterID, &t.Address, &t.Location.Lat, &t.Location.Lng, &t.WorkersCount,
		&t.ScheduledAt, &credits, &t.Status, &t.CharterCompletedAt, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("trip")
	}
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", id, err)
	}
	t.EstimatedCredits = types.Credits(credits)
	return &t, nil
}

func (s *Store) MarkCharterCompleted(ctx context.Context, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET status = 'charter_completed', charter_completed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL`,
		string(id), at,
	)
	if err != nil {
		return false, fmt.Errorf("mark trip %s charter_completed: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Settle completes the trip, credits the charter and records the payout. The requester's
// balance is not touched here; it was debited when the trip was created.
func (s *Store) Settle(ctx context.Context, t *Trip, payout *Movement) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trips
			SET status = 'completed', completed_at = $2, updated_at = $2
			WHERE id = $1 AND status = 'charter_completed' AND deleted_at IS NULL`,
			string(t.ID), payout.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("complete trip: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrTripMoved
		}

		tag, err = tx.Exec(ctx, `
			UPDATE users SET credits = credits + $2, updated_at = $3 WHERE id = $1`,
			string(payout.UserID), int64(payout.Delta), payout.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("credit charter: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return apperr.NotFound("charter")
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO credit_movements (id, user_id, trip_id, delta, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			string(payout.ID), string(payout.UserID), string(payout.TripID),
			int64(payout.Delta), string(payout.Reason), payout.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert payout movement: %w", err)
		}
		return nil
	})
}

func (s *Store) HasFeedback(ctx context.Context, tripID, userID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM feedback WHERE trip_id = $1 AND from_user_id = $2)`,
		string(tripID), string(userID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check feedback: %w", err)
	}
	return exists, nil
}
