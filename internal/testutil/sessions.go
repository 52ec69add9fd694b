package testutil

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"go.uber.org/zap"
)

// TestSessionName is the cookie name used by NewSessionManager.
const TestSessionName = "campusdesk-test"

// MemSessionBackend keeps sessions in memory.
type MemSessionBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemSessionBackend() *MemSessionBackend {
	return &MemSessionBackend{data: map[string]string{}}
}

func (m *MemSessionBackend) Load(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	if !ok {
		return "", auth.ErrSessionNotFound
	}
	return d, nil
}

func (m *MemSessionBackend) Save(_ context.Context, id, data string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

func (m *MemSessionBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemSessionBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// NewSessionManager returns an insecure-cookie session manager over an
// in-memory backend.
func NewSessionManager(t *testing.T) (*auth.SessionManager, *MemSessionBackend) {
	t.Helper()
	backend := NewMemSessionBackend()
	sm, err := auth.NewSessionManager(backend, "test-session-key-for-testing-only-0123", TestSessionName, "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm, backend
}

// SessionCookie returns the session cookie set on a response, or nil.
func SessionCookie(rec *ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == TestSessionName {
			return c
		}
	}
	return nil
}
