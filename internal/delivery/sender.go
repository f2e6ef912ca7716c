// Package delivery holds the channel senders a broadcast fans out through:
// SMS via the Sparrow gateway and email via SendGrid or SES.
package delivery

import (
	"context"

	"github.com/samparkhq/sampark/pkg/logging"
)

// Message is one rendered outbound SMS.
type Message struct {
	OrgID string
	To    string
	Body  string
}

// Sender dispatches a single SMS.
// Implementations can be swapped (Sparrow, log-only) without changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs instead of sending. Used in dev and when no gateway is
// configured.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("sms suppressed (log sender)", "org_id", msg.OrgID, "to", msg.To, "chars", len([]rune(msg.Body)))
	return nil
}
