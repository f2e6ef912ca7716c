package contacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists contacts in Postgres. Attributes live in a JSONB
// column; tags in a text array.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	attrs, err := json.Marshal(c.Attributes)
	if err != nil {
		return fmt.Errorf("contacts: marshal attributes: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (id, org_id, name, phone, email, language, tags, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		c.ID, c.OrgID, c.Name, c.Phone, c.Email, c.Language, pq.Array(c.Tags), attrs,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("contacts: insert: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, c *Contact) error {
	attrs, err := json.Marshal(c.Attributes)
	if err != nil {
		return fmt.Errorf("contacts: marshal attributes: %w", err)
	}
	var updatedAt time.Time
	err = r.db.QueryRowContext(ctx, `
		UPDATE contacts
		SET name = $2, phone = $3, email = $4, language = $5, tags = $6, attributes = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Phone, c.Email, c.Language, pq.Array(c.Tags), attrs,
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("contacts: update: %w", err)
	}
	c.UpdatedAt = updatedAt
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, phone, email, language, tags, attributes, created_at, updated_at
		FROM contacts WHERE id = $1`, id)
	return scanContact(row)
}

// ListByOrg returns the org's contacts, optionally narrowed to those
// carrying every tag in the filter.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, tags []string) ([]Contact, error) {
	query := `
		SELECT id, org_id, name, phone, email, language, tags, attributes, created_at, updated_at
		FROM contacts WHERE org_id = $1`
	args := []any{orgID}
	if len(tags) > 0 {
		query += ` AND tags @> $2`
		args = append(args, pq.Array(tags))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("contacts: list: %w", err)
	}
	defer rows.Close()

	out := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("contacts: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("contacts: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var c Contact
	var attrs []byte
	err := row.Scan(&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.Email, &c.Language,
		pq.Array(&c.Tags), &attrs, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("contacts: scan: %w", err)
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &c.Attributes); err != nil {
			return nil, fmt.Errorf("contacts: unmarshal attributes: %w", err)
		}
	}
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}
