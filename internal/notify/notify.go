// Package notify alerts the on-call support line when a conversation
// escalates. Notification is best-effort: failures are logged and never
// surface to the user-facing response.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier delivers an escalation alert for a session.
type Notifier interface {
	NotifyEscalation(ctx context.Context, sessionID, reason, summary string) error
}

// Opts holds configuration options for the Twilio notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// Option defines a configuration option for the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending phone number.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithTo sets the on-call phone number that receives alerts.
func WithTo(to string) Option {
	return func(o *Opts) { o.To = to }
}

// TwilioNotifier sends escalation alerts as SMS via the Twilio API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilioNotifier creates a notifier from options, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, and
// TWILIO_ESCALATION_NUMBER environment variables.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.To == "" {
		cfg.To = os.Getenv("TWILIO_ESCALATION_NUMBER")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "",
		"To_set", cfg.To != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("from and to numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioNotifier{client: client, from: cfg.From, to: cfg.To}, nil
}

// NotifyEscalation sends the alert SMS to the on-call number.
func (n *TwilioNotifier) NotifyEscalation(ctx context.Context, sessionID, reason, summary string) error {
	body := fmt.Sprintf("DeskPipe escalation [%s] session %s: %s", reason, sessionID, summary)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(body)

	_, err := n.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio NotifyEscalation failed", "session_id", sessionID, "reason", reason, "error", err)
		return fmt.Errorf("failed to send escalation alert for session %s: %w", sessionID, err)
	}

	slog.Info("Twilio escalation alert sent", "session_id", sessionID, "reason", reason)
	return nil
}

// NoopNotifier discards alerts. Used when no Twilio credentials are
// configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyEscalation(ctx context.Context, sessionID, reason, summary string) error {
	slog.Debug("NoopNotifier dropping escalation alert", "session_id", sessionID, "reason", reason)
	return nil
}

// MockNotifier records alerts for tests. Safe for concurrent use; the
// serving layer delivers alerts from goroutines.
type MockNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

// Alert is one recorded escalation notification.
type Alert struct {
	SessionID string
	Reason    string
	Summary   string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{alerts: []Alert{}}
}

func (m *MockNotifier) NotifyEscalation(ctx context.Context, sessionID, reason, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, Alert{SessionID: sessionID, Reason: reason, Summary: summary})
	return nil
}

// Alerts returns a snapshot of the recorded alerts.
func (m *MockNotifier) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
