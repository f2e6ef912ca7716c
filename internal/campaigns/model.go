// Package campaigns orchestrates broadcasts: a campaign ties a stored
// template to an org's contact list, and a broadcast job tracks one send of
// that campaign across every matching contact.
package campaigns

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested campaign does not exist.
var ErrNotFound = errors.New("campaigns: not found")

// Campaign statuses.
const (
	StatusDraft     = "draft"
	StatusQueued    = "queued"
	StatusCompleted = "completed"
)

// Campaign is one planned broadcast of a template to a tagged segment of
// the org's contacts.
type Campaign struct {
	ID         uuid.UUID `json:"id"`
	OrgID      uuid.UUID `json:"org_id"`
	Name       string    `json:"name"`
	Channel    string    `json:"channel"`
	TemplateID uuid.UUID `json:"template_id"`
	Tags       []string  `json:"tags"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BroadcastMessage is the SQS payload from the API to the broadcast worker.
type BroadcastMessage struct {
	JobID      string `json:"job_id"`
	CampaignID string `json:"campaign_id"`
	OrgID      string `json:"org_id"`
}
