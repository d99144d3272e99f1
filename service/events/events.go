package events

import (
	"time"

	"github.com/gofrs/uuid"
)

// Kind classifies an event.
type Kind string

// Event kinds.
const (
	KindDetection  Kind = "detection"
	KindProtection Kind = "protection"
	KindStatus     Kind = "status"
	KindError      Kind = "error"
)

// Severity is the notification level of an event.
type Severity string

// Event severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is an immutable record emitted by the monitoring core.
// Consumers decide how to render or persist it, the core never reads it back.
type Event struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Kind     Kind      `json:"kind"`
	Severity Severity  `json:"severity"`
	Payload  any       `json:"payload"`
}

// New returns a new event with the current time and a fresh ID.
func New(kind Kind, severity Severity, payload any) Event {
	return Event{
		ID:       newID(),
		Time:     time.Now().UTC(),
		Kind:     kind,
		Severity: severity,
		Payload:  payload,
	}
}

func newID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// Only fails when the OS random source is broken, in which case the
		// monitoring loop has already shut down.
		return "00000000-0000-0000-0000-000000000000"
	}
	return id.String()
}
