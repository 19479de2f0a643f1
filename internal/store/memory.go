package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	v1 "github.com/lyraio/lyra/api/v1"
	"github.com/lyraio/lyra/internal/types"
)

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]v1.User
	guardians   []v1.Guardian
	authorities []v1.Authority
	logs        []v1.NotificationLog
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]v1.User),
		now:   time.Now,
	}
}

// PutUser creates or replaces a user profile.
func (m *MemoryStore) PutUser(id string, u v1.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = u
}

// AddGuardian links a guardian device to a user.
func (m *MemoryStore) AddGuardian(g v1.Guardian) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guardians = append(m.guardians, g)
}

// AddAuthority adds a responder device to the shared pool.
func (m *MemoryStore) AddAuthority(a v1.Authority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorities = append(m.authorities, a)
}

// Logs returns a snapshot of appended delivery logs in write order.
func (m *MemoryStore) Logs() []v1.NotificationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]v1.NotificationLog, len(m.logs))
	copy(out, m.logs)
	return out
}

// UserProfile implements Directory.
func (m *MemoryStore) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return UserProfile{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return UserProfile{}, ErrNotFound
	}
	return UserProfile{ID: userID, Name: u.Name}, nil
}

// GuardianAddresses implements Directory.
func (m *MemoryStore) GuardianAddresses(ctx context.Context, subjectUserID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, g := range m.guardians {
		if g.LinkedUserID == subjectUserID {
			out = append(out, g.FCMToken)
		}
	}
	return out, nil
}

// ActiveAuthorityAddresses implements Directory.
func (m *MemoryStore) ActiveAuthorityAddresses(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, a := range m.authorities {
		if a.Active {
			out = append(out, a.FCMToken)
		}
	}
	return out, nil
}

// AppendDeliveryLog implements LogWriter.
func (m *MemoryStore) AppendDeliveryLog(ctx context.Context, entry types.DeliveryLogEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc := LogDocument(entry)
	doc.Timestamp = m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, doc)
	return strconv.Itoa(len(m.logs)), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
