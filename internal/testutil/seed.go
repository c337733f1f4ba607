// README: Row builders for DB-backed tests.
package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRow struct {
	ID       string
	Name     string
	Role     string
	Verified bool
	Credits  int64
	Origin   *[2]float64
	Deleted  bool
}

func InsertUser(t *testing.T, db *pgxpool.Pool, u UserRow) {
	t.Helper()
	if u.Name == "" {
		u.Name = u.ID
	}
	if u.Role == "" {
		u.Role = "user"
	}
	verification := "pending"
	if u.Verified {
		verification = "verified"
	}
	var lat, lng *float64
	if u.Origin != nil {
		lat, lng = &u.Origin[0], &u.Origin[1]
	}
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, name, email, role, verification_status, credits, origin_lat, origin_lng, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CASE WHEN $9 THEN NOW() ELSE NULL END)`,
		u.ID, u.Name, u.ID+"@charterhub.test", u.Role, verification, u.Credits, lat, lng, u.Deleted)
	if err != nil {
		t.Fatalf("insert user %s: %v", u.ID, err)
	}
}

func SetAvailable(t *testing.T, db *pgxpool.Pool, charterID string, available bool) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO charter_availability (charter_id, is_available, last_toggled_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (charter_id) DO UPDATE SET is_available = EXCLUDED.is_available`, charterID, available)
	if err != nil {
		t.Fatalf("set availability %s: %v", charterID, err)
	}
}

func Credits(t *testing.T, db *pgxpool.Pool, userID string) int64 {
	t.Helper()
	var c int64
	if err := db.QueryRow(context.Background(), `SELECT credits FROM users WHERE id = $1`, userID).Scan(&c); err != nil {
		t.Fatalf("read credits %s: %v", userID, err)
	}
	return c
}
