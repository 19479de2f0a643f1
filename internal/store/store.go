// Package store provides the document-store backends the notification core
// reads recipients from and appends delivery logs to.
//
// Three backends implement Store:
//   - Firestore: the production layout shared with the mobile app
//   - SQL (bun): sqlite, postgres or mysql tables mirroring the collections
//   - Memory: mutex-guarded maps for tests and local runs
package store

import (
	"context"
	"errors"

	v1 "github.com/lyraio/lyra/api/v1"
	"github.com/lyraio/lyra/internal/types"
)

// ErrNotFound is returned when a keyed document does not exist.
var ErrNotFound = errors.New("not found")

// UserProfile is the subset of a user document the core needs.
type UserProfile struct {
	ID   string
	Name string
}

// Directory is the read side of the store used by the recipient resolver.
// Address lists are returned as stored: entries without a push address are
// returned as empty strings and filtered by the caller.
type Directory interface {
	// UserProfile returns ErrNotFound when no profile exists for userID.
	UserProfile(ctx context.Context, userID string) (UserProfile, error)

	// GuardianAddresses returns the push address of every guardian linked to subjectUserID.
	GuardianAddresses(ctx context.Context, subjectUserID string) ([]string, error)

	// ActiveAuthorityAddresses returns the push address of every active authority.
	ActiveAuthorityAddresses(ctx context.Context) ([]string, error)
}

// LogWriter appends delivery log records. Records are never updated or deleted.
type LogWriter interface {
	// AppendDeliveryLog writes one record and returns its store-assigned id.
	AppendDeliveryLog(ctx context.Context, entry types.DeliveryLogEntry) (string, error)
}

// Store is a full backend.
type Store interface {
	Directory
	LogWriter
	Close() error
}

// LogDocument converts an entry to the notification_logs document layout.
func LogDocument(e types.DeliveryLogEntry) v1.NotificationLog {
	doc := v1.NotificationLog{
		Kind:                string(e.Kind),
		UserID:              e.SubjectUserID,
		Source:              string(e.Source),
		DangerScore:         e.RiskScore,
		GuardiansNotified:   e.GuardiansNotified,
		AuthoritiesNotified: e.AuthoritiesNotified,
		GuardianRecipients:  e.GuardianRecipients,
		AuthorityRecipients: e.AuthorityRecipients,
		Timestamp:           e.Timestamp,
	}
	if e.Kind == types.EventKindAlert {
		doc.SOSID = e.EventID
	} else {
		doc.EventID = e.EventID
	}
	return doc
}
