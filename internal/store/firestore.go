package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/lyraio/lyra/api/v1"
	"github.com/lyraio/lyra/internal/types"
)

// FirestoreStore reads and writes the collections shared with the mobile app.
type FirestoreStore struct {
	client *firestore.Client
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore connects to the Firestore database of projectID.
// Credentials come from opts or Application Default Credentials.
func NewFirestoreStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewFirestoreStoreFromClient(client), nil
}

// NewFirestoreStoreFromClient wraps an existing client.
func NewFirestoreStoreFromClient(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Client exposes the underlying client for snapshot listeners.
func (f *FirestoreStore) Client() *firestore.Client {
	return f.client
}

// UserProfile implements Directory. A name of the wrong type reads as empty.
func (f *FirestoreStore) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	snap, err := f.client.Collection(v1.CollectionUsers).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return UserProfile{}, ErrNotFound
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	name, _ := snap.Data()[v1.FieldName].(string)
	return UserProfile{ID: userID, Name: name}, nil
}

// GuardianAddresses implements Directory.
func (f *FirestoreStore) GuardianAddresses(ctx context.Context, subjectUserID string) ([]string, error) {
	docs, err := f.client.Collection(v1.CollectionGuardians).
		Where(v1.FieldLinkedUserID, "==", subjectUserID).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query guardians: %w", err)
	}
	return tokensOf(docs), nil
}

// ActiveAuthorityAddresses implements Directory.
func (f *FirestoreStore) ActiveAuthorityAddresses(ctx context.Context) ([]string, error) {
	docs, err := f.client.Collection(v1.CollectionAuthorities).
		Where(v1.FieldActive, "==", true).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query authorities: %w", err)
	}
	return tokensOf(docs), nil
}

// AppendDeliveryLog implements LogWriter. The timestamp is set by the
// Firestore server through the serverTimestamp field option.
func (f *FirestoreStore) AppendDeliveryLog(ctx context.Context, entry types.DeliveryLogEntry) (string, error) {
	doc := LogDocument(entry)
	doc.Timestamp = time.Time{}
	ref, _, err := f.client.Collection(v1.CollectionNotificationLogs).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("add notification log: %w", err)
	}
	return ref.ID, nil
}

// Close implements Store.
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

// tokensOf projects fcmToken from each document; non-string values read as empty.
func tokensOf(docs []*firestore.DocumentSnapshot) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		token, _ := d.Data()[v1.FieldFCMToken].(string)
		out = append(out, token)
	}
	return out
}
