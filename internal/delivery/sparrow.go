package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samparkhq/sampark/pkg/logging"
)

var sparrowTracer trace.Tracer = otel.Tracer("sampark.internal.delivery.sparrow")

const defaultSparrowEndpoint = "https://api.sparrowsms.com/v2/sms/"

// SparrowEndpoint joins a configured gateway base URL with the send path.
// An empty base falls back to the production gateway.
func SparrowEndpoint(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return defaultSparrowEndpoint
	}
	return strings.TrimRight(base, "/") + "/sms/"
}

// SparrowSender posts SMS messages through the Sparrow SMS gateway.
type SparrowSender struct {
	token      string
	from       string
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
}

// SparrowConfig holds the gateway credentials. Endpoint is overridable for
// tests and staging.
type SparrowConfig struct {
	Token    string
	From     string
	Endpoint string
	Timeout  time.Duration
}

func NewSparrowSender(cfg SparrowConfig, logger *logging.Logger) *SparrowSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultSparrowEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SparrowSender{
		token:    cfg.Token,
		from:     cfg.From,
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

var _ Sender = (*SparrowSender)(nil)

// Send dispatches a single SMS via the Sparrow v2 API, retrying transient
// failures.
func (s *SparrowSender) Send(ctx context.Context, msg Message) error {
	if s.token == "" {
		return errors.New("delivery: sparrow token missing")
	}
	if msg.To == "" {
		return errors.New("delivery: to required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("delivery: body required")
	}

	ctx, span := sparrowTracer.Start(ctx, "delivery.sparrow.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("sampark.org_id", msg.OrgID),
		attribute.String("sampark.to", msg.To),
	)

	form := url.Values{
		"token": {s.token},
		"from":  {s.from},
		"to":    {msg.To},
		"text":  {msg.Body},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					ResponseCode int    `json:"response_code"`
					Response     string `json:"response"`
					Count        int    `json:"count"`
				}
				if err := json.Unmarshal(body, &parsed); err == nil && parsed.ResponseCode != 0 && parsed.ResponseCode != 200 {
					lastErr = fmt.Errorf("sparrow send rejected: code %d: %s", parsed.ResponseCode, parsed.Response)
				} else {
					s.logger.Info("sparrow sms sent", "org_id", msg.OrgID, "to", msg.To)
					return nil
				}
			} else {
				lastErr = fmt.Errorf("sparrow send failed: status %d", resp.StatusCode)
			}
		}

		if attempt < 3 {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		s.logger.Error("failed to send sparrow sms", "error", lastErr, "org_id", msg.OrgID, "to", msg.To)
	}
	return lastErr
}
