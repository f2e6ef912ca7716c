package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the requested template does not exist.
var ErrNotFound = errors.New("templates: not found")

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists template records in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, tpl *Template) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	query := `
		INSERT INTO templates (id, org_id, name, channel, content, variables)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		tpl.ID, tpl.OrgID, tpl.Name, tpl.Channel, tpl.Content, tpl.Variables,
	).Scan(&tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("templates: insert: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, tpl *Template) error {
	query := `
		UPDATE templates
		SET name = $2, channel = $3, content = $4, variables = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		tpl.ID, tpl.Name, tpl.Channel, tpl.Content, tpl.Variables,
	).Scan(&tpl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("templates: update: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	query := `
		SELECT id, org_id, name, channel, content, variables, created_at, updated_at
		FROM templates
		WHERE id = $1
	`
	var tpl Template
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&tpl.ID, &tpl.OrgID, &tpl.Name, &tpl.Channel, &tpl.Content,
		&tpl.Variables, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("templates: get: %w", err)
	}
	if tpl.Variables == nil {
		tpl.Variables = []string{}
	}
	return &tpl, nil
}

func (s *Store) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]Template, error) {
	query := `
		SELECT id, org_id, name, channel, content, variables, created_at, updated_at
		FROM templates
		WHERE org_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("templates: list: %w", err)
	}
	defer rows.Close()

	out := []Template{}
	for rows.Next() {
		var tpl Template
		if err := rows.Scan(
			&tpl.ID, &tpl.OrgID, &tpl.Name, &tpl.Channel, &tpl.Content,
			&tpl.Variables, &tpl.CreatedAt, &tpl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("templates: scan: %w", err)
		}
		if tpl.Variables == nil {
			tpl.Variables = []string{}
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("templates: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
