// Package testutil provides shared test helpers for the lyra project.
// Import this in test files to avoid duplicating fixture loading, event builders and fakes.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/lyraio/lyra/internal/store"
	"github.com/lyraio/lyra/internal/types"
)

// LoadFixture reads a YAML or JSON document and returns it as a generic map,
// the same shape the triggers hand to the decoders.
// Fails the test immediately if the file can't be read or parsed.
func LoadFixture(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read fixture %s", path)
	doc := map[string]interface{}{}
	require.NoError(t, yaml.Unmarshal(data, &doc), "failed to parse fixture %s", path)
	return doc
}

// MakeAlert creates an alert event. risk may be nil.
func MakeAlert(id, userID string, source types.Source, risk *float64) types.Event {
	return types.Event{
		ID:            id,
		Kind:          types.EventKindAlert,
		SubjectUserID: userID,
		Source:        source,
		RiskScore:     risk,
	}
}

// MakeTracking creates a tracking event with the given kind ("started", "stopped", ...).
func MakeTracking(id, userID, kind string) types.Event {
	return types.Event{
		ID:            id,
		Kind:          types.EventKindTracking,
		SubjectUserID: userID,
		TrackingKind:  kind,
	}
}

// SendCall is one recorded multicast send.
type SendCall struct {
	Tokens  []string
	Payload types.Payload
}

// RecordingSender records multicast sends. Safe for concurrent use.
// When Err is set every send fails with it after being recorded.
type RecordingSender struct {
	Err error

	mu    sync.Mutex
	calls []SendCall
}

// Name implements the sender interface.
func (s *RecordingSender) Name() string { return "recording" }

// SendMulticast records the call and reports every token as delivered.
func (s *RecordingSender) SendMulticast(_ context.Context, tokens []string, p types.Payload) (types.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	s.calls = append(s.calls, SendCall{Tokens: cp, Payload: p})
	if s.Err != nil {
		return types.SendResult{}, s.Err
	}
	return types.SendResult{SuccessCount: len(tokens)}, nil
}

// Calls returns a snapshot of recorded sends.
func (s *RecordingSender) Calls() []SendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SendCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallFor returns the recorded send whose token list starts with token.
func (s *RecordingSender) CallFor(token string) (SendCall, bool) {
	for _, c := range s.Calls() {
		if len(c.Tokens) > 0 && c.Tokens[0] == token {
			return c, true
		}
	}
	return SendCall{}, false
}

// FaultyDirectory wraps a Directory and fails selected lookups.
// It counts calls so tests can assert no lookup happened.
type FaultyDirectory struct {
	store.Directory
	ProfileErr   error
	GuardianErr  error
	AuthorityErr error

	mu    sync.Mutex
	calls int
}

// UserProfile implements store.Directory.
func (d *FaultyDirectory) UserProfile(ctx context.Context, userID string) (store.UserProfile, error) {
	d.count()
	if d.ProfileErr != nil {
		return store.UserProfile{}, d.ProfileErr
	}
	return d.Directory.UserProfile(ctx, userID)
}

// GuardianAddresses implements store.Directory.
func (d *FaultyDirectory) GuardianAddresses(ctx context.Context, subjectUserID string) ([]string, error) {
	d.count()
	if d.GuardianErr != nil {
		return nil, d.GuardianErr
	}
	return d.Directory.GuardianAddresses(ctx, subjectUserID)
}

// ActiveAuthorityAddresses implements store.Directory.
func (d *FaultyDirectory) ActiveAuthorityAddresses(ctx context.Context) ([]string, error) {
	d.count()
	if d.AuthorityErr != nil {
		return nil, d.AuthorityErr
	}
	return d.Directory.ActiveAuthorityAddresses(ctx)
}

// Calls returns the number of lookups made.
func (d *FaultyDirectory) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *FaultyDirectory) count() {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
}

// FailingLogWriter rejects every append.
type FailingLogWriter struct {
	Err error
}

// AppendDeliveryLog implements store.LogWriter.
func (w FailingLogWriter) AppendDeliveryLog(context.Context, types.DeliveryLogEntry) (string, error) {
	return "", w.Err
}
