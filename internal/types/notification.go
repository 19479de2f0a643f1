package types

import "time"

// Decision is the routing policy output for one event.
type Decision struct {
	NotifyGuardians   bool
	NotifyAuthorities bool
}

// Recipients holds the resolved display name and reachable push addresses
// for a subject user.
type Recipients struct {
	DisplayName string
	Guardians   []string
	Authorities []string
}

// Payload is the rendered push notification shared by all recipient groups
// of a single event. Data values are always strings; absent values are "".
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// DeliveryLogEntry is the audit record written once per processed event.
// GuardiansNotified and AuthoritiesNotified record the routing decision,
// not delivery success. Timestamp is assigned by the store on write.
type DeliveryLogEntry struct {
	EventID       string
	Kind          EventKind
	SubjectUserID string
	Source        Source
	RiskScore     *float64

	GuardiansNotified   bool
	AuthoritiesNotified bool

	// Informational: address counts at decision time.
	GuardianRecipients  int
	AuthorityRecipients int

	Timestamp time.Time
}

// SendResult summarizes one multicast send. Per-address failures do not
// fail the send as a whole.
type SendResult struct {
	SuccessCount int
	FailureCount int
	FailedTokens []string
}
