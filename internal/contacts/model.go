// Package contacts stores the people a campaign renders for. A contact's
// attributes are free-form key/value pairs and double as the variable
// bindings handed to the template engine when a broadcast renders that
// contact's message.
package contacts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested contact does not exist.
var ErrNotFound = errors.New("contacts: not found")

// Contact is a render target for outreach campaigns.
type Contact struct {
	ID         uuid.UUID         `json:"id"`
	OrgID      uuid.UUID         `json:"org_id"`
	Name       string            `json:"name"`
	Phone      string            `json:"phone"`
	Email      string            `json:"email,omitempty"`
	Language   string            `json:"language,omitempty"`
	Tags       []string          `json:"tags"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Bindings returns the variable map used to render templates for this
// contact. The contact's name is always available as "name"; explicit
// attributes win over it.
func (c *Contact) Bindings() map[string]string {
	out := make(map[string]string, len(c.Attributes)+1)
	out["name"] = c.Name
	for k, v := range c.Attributes {
		out[k] = v
	}
	return out
}
