// README: Pricing store backed by the system_config table in PostgreSQL.
package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ListByPrefix returns every system_config entry whose key starts with prefix.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT key, value
		FROM system_config
		WHERE key LIKE $1 || '%'`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list system_config %s*: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
