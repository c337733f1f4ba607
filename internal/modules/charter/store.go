// README: Charter directory store backed by PostgreSQL (users + charter_availability).
package charter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"charterhub/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ListAvailable returns verified, available, non-deleted charters with an origin.
// A nil ids slice means no pre-filter.
func (s *Store) ListAvailable(ctx context.Context, ids []types.ID) ([]Charter, error) {
	var filter []string
	if ids != nil {
		filter = make([]string, len(ids))
		for i, id := range ids {
			filter[i] = string(id)
		}
	}
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.name, COALESCE(u.origin_address, ''), u.origin_lat, u.origin_lng
		FROM users u
		JOIN charter_availability a ON a.charter_id = u.id
		WHERE u.role = 'charter'
		  AND u.verification_status = 'verified'
		  AND u.deleted_at IS NULL
		  AND u.origin_lat IS NOT NULL
		  AND u.origin_lng IS NOT NULL
		  AND a.is_available
		  AND ($1::text[] IS NULL OR u.id = ANY($1))
		ORDER BY u.id`, filter)
	if err != nil {
		return nil, fmt.Errorf("list available charters: %w", err)
	}
	defer rows.Close()

	var out []Charter
	for rows.Next() {
		var c Charter
		if err := rows.Scan(&c.ID, &c.Name, &c.OriginAddress, &c.Origin.Lat, &c.Origin.Lng); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetAvailability(ctx context.Context, charterID types.ID) (*Availability, error) {
	a := Availability{CharterID: charterID}
	var toggled time.Time
	err := s.db.QueryRow(ctx, `
		SELECT is_available, last_toggled_at
		FROM charter_availability
		WHERE charter_id = $1`, string(charterID),
	).Scan(&a.Available, &toggled)
	if errors.Is(err, pgx.ErrNoRows) {
		return &a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	a.Configured = true
	a.LastToggledAt = &toggled
	return &a, nil
}

func (s *Store) UpsertAvailability(ctx context.Context, charterID types.ID, available bool, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO charter_availability (charter_id, is_available, last_toggled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (charter_id) DO UPDATE
		SET is_available = EXCLUDED.is_available,
		    last_toggled_at = EXCLUDED.last_toggled_at`,
		string(charterID), available, at,
	)
	if err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

func (s *Store) UpdateOrigin(ctx context.Context, charterID types.ID, address string, p types.Point, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET origin_address = $2, origin_lat = $3, origin_lng = $4, updated_at = $5
		WHERE id = $1 AND role = 'charter' AND deleted_at IS NULL`,
		string(charterID), address, p.Lat, p.Lng, at,
	)
	if err != nil {
		return false, fmt.Errorf("update origin: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
