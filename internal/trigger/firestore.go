package trigger

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// rawDoc is a newly added document.
type rawDoc struct {
	ID   string
	Data map[string]any
}

// FirestoreListener watches the trigger collections for added documents.
// Documents present when the listener starts are not replayed.
type FirestoreListener struct {
	client *firestore.Client
	sub    Submitter
	logger *zap.Logger
}

// NewFirestoreListener creates a listener.
func NewFirestoreListener(client *firestore.Client, sub Submitter, logger *zap.Logger) *FirestoreListener {
	return &FirestoreListener{
		client: client,
		sub:    sub,
		logger: logger.Named("firestore-listener"),
	}
}

// Run listens on every trigger collection until ctx is cancelled.
func (l *FirestoreListener) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range Collections {
		g.Go(func() error { return l.listen(ctx, c) })
	}
	return g.Wait()
}

func (l *FirestoreListener) listen(ctx context.Context, collection string) error {
	it := l.client.Collection(collection).Snapshots(ctx)
	defer it.Stop()

	l.logger.Info("Listening for new documents", zap.String("collection", collection))
	initial := true
	for {
		snap, err := it.Next()
		if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
			return nil
		}
		if err != nil {
			return fmt.Errorf("listen on %s: %w", collection, err)
		}
		if initial {
			initial = false
			continue
		}
		l.submit(ctx, collection, added(snap.Changes))
	}
}

// added keeps the DocumentAdded changes.
func added(changes []firestore.DocumentChange) []rawDoc {
	var out []rawDoc
	for _, ch := range changes {
		if ch.Kind != firestore.DocumentAdded || ch.Doc == nil {
			continue
		}
		out = append(out, rawDoc{ID: ch.Doc.Ref.ID, Data: ch.Doc.Data()})
	}
	return out
}

func (l *FirestoreListener) submit(ctx context.Context, collection string, docs []rawDoc) {
	for _, d := range docs {
		ev, err := Decode(collection, d.ID, d.Data)
		if err != nil {
			l.logger.Error("Cannot decode document", zap.String("collection", collection), zap.Error(err))
			continue
		}
		l.sub.Submit(ctx, ev)
		triggerEventsTotal.WithLabelValues("firestore", collection).Inc()
	}
}
