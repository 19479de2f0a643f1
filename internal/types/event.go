package types

import (
	"errors"
	"fmt"
)

// EventKind distinguishes the two trigger collections.
type EventKind string

const (
	EventKindAlert    EventKind = "alert"    // sos_alerts
	EventKindTracking EventKind = "tracking" // tracking_events
)

// Source records how an alert was raised.
type Source string

const (
	SourceManual Source = "manual" // SOS button
	SourceVoice  Source = "voice"  // voice keyword
	SourceAI     Source = "ai"     // on-device danger model, carries a risk score
)

// TrackingStarted is the only tracking event kind that is processed.
const TrackingStarted = "started"

var (
	// ErrInvalidEvent marks an event record missing its required identifying fields.
	ErrInvalidEvent = errors.New("invalid event record")

	// ErrIgnoredEvent marks a well-formed event this service does not act on,
	// e.g. a tracking event whose kind is not "started".
	ErrIgnoredEvent = errors.New("event ignored")
)

// Event is the normalized trigger payload for both alert and tracking records.
// Alert-only and tracking-only fields are left at their zero value for the
// other kind. Optional numbers are nil when absent; nil never means zero.
type Event struct {
	// Identity
	ID            string
	Kind          EventKind
	SubjectUserID string

	// Alert
	Source    Source
	RiskScore *float64
	Latitude  *float64
	Longitude *float64

	// Tracking
	TrackingKind string
}

// Validate reports whether the event may be processed. It returns an error
// wrapping ErrInvalidEvent or ErrIgnoredEvent, or nil.
func (e Event) Validate() error {
	if e.SubjectUserID == "" {
		return fmt.Errorf("%w: missing subject user id", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventKindAlert:
		if e.Source == "" {
			return fmt.Errorf("%w: missing alert source", ErrInvalidEvent)
		}
	case EventKindTracking:
		if e.TrackingKind != TrackingStarted {
			return fmt.Errorf("%w: tracking kind %q", ErrIgnoredEvent, e.TrackingKind)
		}
	default:
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// Float returns a pointer to v. Convenience for building events with optional numbers.
func Float(v float64) *float64 {
	return &v
}
