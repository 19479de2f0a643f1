// Package v1 defines the document layout of the collections shared with the
// Lyra mobile app. Field names match what the app writes; the firestore tags
// are used by the Firestore backend and the json tags by the HTTP ingest
// endpoint and CLI output.
package v1

import "time"

// Collection names.
const (
	CollectionUsers            = "users"
	CollectionGuardians        = "guardians"
	CollectionAuthorities      = "authorities"
	CollectionNotificationLogs = "notification_logs"
	CollectionSOSAlerts        = "sos_alerts"
	CollectionTrackingEvents   = "tracking_events"
)

// Field names read from trigger documents.
const (
	FieldUserID    = "userId"
	FieldSource    = "source"
	FieldRisk      = "risk"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldType      = "type"

	FieldName         = "name"
	FieldLinkedUserID = "linkedUserId"
	FieldFCMToken     = "fcmToken"
	FieldActive       = "active"
)

// SOSAlert is a document in sos_alerts. Written by the app; read-only here.
type SOSAlert struct {
	UserID    string   `json:"userId" firestore:"userId"`
	Source    string   `json:"source" firestore:"source"` // manual | voice | ai
	Risk      *float64 `json:"risk,omitempty" firestore:"risk"`
	Latitude  *float64 `json:"latitude,omitempty" firestore:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" firestore:"longitude"`
}

// TrackingEvent is a document in tracking_events. Written by the app; read-only here.
type TrackingEvent struct {
	UserID string `json:"userId" firestore:"userId"`
	Type   string `json:"type" firestore:"type"` // started | stopped | ...
}

// User is a document in users, keyed by user id.
type User struct {
	Name string `json:"name" firestore:"name"`
}

// Guardian links a guardian device to the user it watches over.
type Guardian struct {
	LinkedUserID string `json:"linkedUserId" firestore:"linkedUserId"`
	FCMToken     string `json:"fcmToken,omitempty" firestore:"fcmToken"`
}

// Authority is a responder device from the shared pool.
type Authority struct {
	Active   bool   `json:"active" firestore:"active"`
	FCMToken string `json:"fcmToken,omitempty" firestore:"fcmToken"`
}

// NotificationLog is an append-only document in notification_logs.
type NotificationLog struct {
	// SOSID is set for alerts, EventID for tracking events.
	SOSID   string `json:"sosId,omitempty" firestore:"sosId,omitempty"`
	EventID string `json:"eventId,omitempty" firestore:"eventId,omitempty"`

	Kind        string   `json:"kind" firestore:"kind"`
	UserID      string   `json:"userId" firestore:"userId"`
	Source      string   `json:"source,omitempty" firestore:"source,omitempty"`
	DangerScore *float64 `json:"dangerScore" firestore:"dangerScore"`

	GuardiansNotified   bool `json:"guardiansNotified" firestore:"guardiansNotified"`
	AuthoritiesNotified bool `json:"authoritiesNotified" firestore:"authoritiesNotified"`

	GuardianRecipients  int `json:"guardianRecipients" firestore:"guardianRecipients"`
	AuthorityRecipients int `json:"authorityRecipients" firestore:"authorityRecipients"`

	// Timestamp is assigned by the server when left zero.
	Timestamp time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
}
