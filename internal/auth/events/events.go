package events

import (
	"context"
	"log/slog"
	"time"
)

// Type names a session lifecycle event.
type Type string

const (
	LoginSucceeded  Type = "login.succeeded"
	SessionRefresh  Type = "session.refreshed"
	RefreshReplayed Type = "session.refresh_replayed"
	SessionLogout   Type = "session.logout"
	TokenRevoked    Type = "token.revoked"
	PasswordChanged Type = "user.password_changed"
	UserProvisioned Type = "user.provisioned"
)

// Event is an audit record of something that happened to a session.
type Event struct {
	Type     Type      `json:"type"`
	Subject  string    `json:"sub,omitempty"`
	JTI      string    `json:"jti,omitempty"`
	Method   string    `json:"method,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

// Publisher delivers events. Publish must not block the request path for
// long; failures are reported but never undo the operation that emitted
// the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	p.Logger.InfoContext(ctx, "session event",
		"event", string(e.Type),
		"sub", e.Subject,
		"jti", e.JTI,
		"method", e.Method,
	)
	return nil
}

func (LogPublisher) Close() error { return nil }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
