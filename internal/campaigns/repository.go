package campaigns

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists campaigns in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO campaigns (id, org_id, name, channel, template_id, tags, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		c.ID, c.OrgID, c.Name, c.Channel, c.TemplateID, pq.Array(c.Tags), c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("campaigns: insert: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	var c Campaign
	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, channel, template_id, tags, status, created_at, updated_at
		FROM campaigns WHERE id = $1`, id).Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Channel, &c.TemplateID,
		pq.Array(&c.Tags), &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("campaigns: get: %w", err)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, org_id, name, channel, template_id, tags, status, created_at, updated_at
		FROM campaigns WHERE org_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	defer rows.Close()

	out := []Campaign{}
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.Channel, &c.TemplateID,
			pq.Array(&c.Tags), &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("campaigns: scan: %w", err)
		}
		if c.Tags == nil {
			c.Tags = []string{}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetStatus moves a campaign through draft -> queued -> completed.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE campaigns SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`, id, status).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("campaigns: set status: %w", err)
	}
	return nil
}
