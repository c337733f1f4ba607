// README: User lookups backed by PostgreSQL. Users are owned by the surrounding CRUD surface; this is read-only.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"charterhub/internal/apperr"
	"charterhub/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectUser = `
	SELECT id, name, email, COALESCE(phone, ''), role, verification_status, credits,
	       COALESCE(origin_address, ''), origin_lat, origin_lng, deleted_at IS NOT NULL
	FROM users`

// Get returns the user or a not-found error; soft-deleted users count as missing.
func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, selectUser+` WHERE id = $1`, string(id)))
	if err != nil {
		return nil, err
	}
	if !u.Lifecycle.Usable() {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, selectUser+` WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, err
	}
	if !u.Lifecycle.Usable() {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var lat, lng *float64
	var deleted bool
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Verification, &u.Credits,
		&u.OriginAddress, &lat, &lng, &deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if lat != nil && lng != nil {
		u.Origin = &types.Point{Lat: *lat, Lng: *lng}
	}
	if deleted {
		u.Lifecycle = types.LifecycleDeleted
	}
	return &u, nil
}
