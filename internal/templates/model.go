// Package templates owns stored message templates: persistence, caching,
// and the HTTP surface over the engine in pkg/template.
package templates

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies which delivery medium a template is written for.
const (
	ChannelSMS    = "sms"
	ChannelVoice  = "voice"
	ChannelSurvey = "survey"
)

// Template is a stored template record. Variables is the deduplicated union
// of required, defaulted, and conditional names, computed from Content at
// save time so the campaign editor can show which inputs a sender must
// supply without re-parsing.
type Template struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Content   string    `json:"content"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func validChannel(channel string) bool {
	switch channel {
	case ChannelSMS, ChannelVoice, ChannelSurvey:
		return true
	}
	return false
}
