// Package deliverylog writes the audit record of each processed event.
package deliverylog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/store"
	"github.com/lyraio/lyra/internal/types"
)

// Logger appends one delivery log record per processed event.
// It does not deduplicate: a redelivered event is recorded again.
type Logger struct {
	w      store.LogWriter
	logger *zap.Logger
}

// New creates a Logger writing to w.
func New(w store.LogWriter, logger *zap.Logger) *Logger {
	return &Logger{
		w:      w,
		logger: logger.Named("delivery-log"),
	}
}

// NewEntry builds the record for an event from its routing decision and the
// recipients resolved for it. The flags record intent, not delivery.
func NewEntry(ev types.Event, d types.Decision, r types.Recipients) types.DeliveryLogEntry {
	entry := types.DeliveryLogEntry{
		EventID:             ev.ID,
		Kind:                ev.Kind,
		SubjectUserID:       ev.SubjectUserID,
		GuardiansNotified:   d.NotifyGuardians,
		AuthoritiesNotified: d.NotifyAuthorities,
		GuardianRecipients:  len(r.Guardians),
		AuthorityRecipients: len(r.Authorities),
	}
	if ev.Kind == types.EventKindAlert {
		entry.Source = ev.Source
		entry.RiskScore = ev.RiskScore
	}
	return entry
}

// Record appends entry.
func (l *Logger) Record(ctx context.Context, entry types.DeliveryLogEntry) error {
	id, err := l.w.AppendDeliveryLog(ctx, entry)
	if err != nil {
		return fmt.Errorf("append delivery log for event %s: %w", entry.EventID, err)
	}
	l.logger.Debug("Recorded delivery",
		zap.String("log_id", id),
		zap.String("event_id", entry.EventID),
		zap.Bool("guardians_notified", entry.GuardiansNotified),
		zap.Bool("authorities_notified", entry.AuthoritiesNotified),
	)
	return nil
}
