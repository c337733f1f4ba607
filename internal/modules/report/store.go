// README: Report store backed by PostgreSQL.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"charterhub/internal/apperr"
	"charterhub/internal/types"
)

// ErrDuplicate means the reporter already filed a report for the conversation.
var ErrDuplicate = errors.New("report already exists")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectReport = `
	SELECT id, conversation_id, reporter_id, reported_id, reason, description, status,
	       admin_notes, resolved_by, resolved_at, created_at, updated_at
	FROM reports`

func (s *Store) Create(ctx context.Context, r *Report) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reports (
			id, conversation_id, reporter_id, reported_id, reason, description, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		string(r.ID), string(r.ConversationID), string(r.ReporterID), string(r.ReportedID),
		r.Reason, r.Description, string(r.Status), r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, conversationID, reporterID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reports WHERE conversation_id = $1 AND reporter_id = $2)`,
		string(conversationID), string(reporterID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check report: %w", err)
	}
	return exists, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx, selectReport+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("report")
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return r, nil
}

// List returns reports newest first; an empty status means all.
func (s *Store) List(ctx context.Context, status Status) ([]Report, error) {
	return s.query(ctx, selectReport+`
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id`, nullable(string(status)))
}

func (s *Store) ListByReporter(ctx context.Context, reporterID types.ID) ([]Report, error) {
	return s.query(ctx, selectReport+` WHERE reporter_id = $1 ORDER BY created_at DESC, id`, string(reporterID))
}

func (s *Store) ListAgainst(ctx context.Context, reportedID types.ID) ([]Report, error) {
	return s.query(ctx, selectReport+` WHERE reported_id = $1 ORDER BY created_at DESC, id`, string(reportedID))
}

func (s *Store) Update(ctx context.Context, r *Report) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reports
		SET status = $2, admin_notes = $3, resolved_by = $4, resolved_at = $5, updated_at = $6
		WHERE id = $1`,
		string(r.ID), string(r.Status), r.AdminNotes, idPtr(r.ResolvedBy), r.ResolvedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update report %s: %w", r.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return apperr.NotFound("report")
	}
	return nil
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]Report, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	var resolvedBy *string
	var resolvedAt *time.Time
	err := row.Scan(
		&r.ID, &r.ConversationID, &r.ReporterID, &r.ReportedID, &r.Reason, &r.Description, &r.Status,
		&r.AdminNotes, &resolvedBy, &resolvedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedBy != nil {
		id := types.ID(*resolvedBy)
		r.ResolvedBy = &id
	}
	r.ResolvedAt = resolvedAt
	return &r, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}
