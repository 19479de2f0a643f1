package trigger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/store"
)

const defaultPollBatch = 100

// Feed is an ordered, append-only view of the trigger tables.
type Feed interface {
	MaxSeq(ctx context.Context, collection string) (int64, error)
	EventsAfter(ctx context.Context, collection string, afterSeq int64, limit int) ([]store.RawEvent, error)
}

// Poller submits rows added to the trigger tables since it started.
type Poller struct {
	feed     Feed
	sub      Submitter
	interval time.Duration
	batch    int
	cursors  map[string]int64
	logger   *zap.Logger
}

// NewPoller creates a poller. Call Run to start it.
func NewPoller(feed Feed, sub Submitter, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		feed:     feed,
		sub:      sub,
		interval: interval,
		batch:    defaultPollBatch,
		cursors:  make(map[string]int64),
		logger:   logger.Named("poller"),
	}
}

// Init positions the cursors at the current end of each table.
func (p *Poller) Init(ctx context.Context) error {
	for _, c := range Collections {
		seq, err := p.feed.MaxSeq(ctx, c)
		if err != nil {
			return err
		}
		p.cursors[c] = seq
	}
	return nil
}

// Run polls at the configured interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Init(ctx); err != nil {
		return err
	}
	p.logger.Info("Polling trigger tables", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll submits every row past the cursors and returns how many were submitted.
// A failed query is logged and retried on the next poll from the same cursor.
func (p *Poller) Poll(ctx context.Context) int {
	submitted := 0
	for _, c := range Collections {
		for {
			rows, err := p.feed.EventsAfter(ctx, c, p.cursors[c], p.batch)
			if err != nil {
				pollErrorsTotal.Inc()
				p.logger.Error("Poll failed", zap.String("collection", c), zap.Error(err))
				break
			}
			for _, row := range rows {
				ev, err := Decode(c, row.ID, row.Data)
				if err == nil {
					p.sub.Submit(ctx, ev)
					triggerEventsTotal.WithLabelValues("sql", c).Inc()
					submitted++
				}
				p.cursors[c] = row.Seq
			}
			if len(rows) < p.batch {
				break
			}
		}
	}
	return submitted
}
