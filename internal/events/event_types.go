package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/securehire-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventSessionRotated EventType = "session_rotated"
	EventLoggedOut      EventType = "logged_out"
	EventRegistered     EventType = "registered"
)

// Actor identifies the principal an event is about. Email is empty when the
// attempt named no known principal.
type Actor struct {
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role,omitempty"`
}

// Event represents an auth event emitted by the services and the session filter.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload carries the failure kind, never the attempted password.
type LoginFailedPayload struct {
	Kind string `json:"kind"`
}

// SessionRotatedPayload records how the rotation went through.
type SessionRotatedPayload struct {
	Retried bool `json:"retried"`
}

// NewEvent stamps an event with an id and the given time.
func NewEvent(eventType EventType, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// ActorOf builds the actor block for a principal.
func ActorOf(p domain.Principal) Actor {
	if p == nil {
		return Actor{}
	}
	return Actor{Email: p.Credentials().Email, Role: p.Role()}
}
