package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codejitsu/codejitsu/internal/domain"
	"github.com/codejitsu/codejitsu/internal/identity"
	"github.com/go-chi/chi/v5"
)

// memRepo is the in-memory store.Repository the identity middleware needs.
type memRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*domain.User)}
}

func (m *memRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *memRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
	return nil
}

func (m *memRepo) UpdateLastSeen(context.Context, string, time.Time) error { return nil }
func (m *memRepo) SaveDraft(context.Context, *domain.Draft) error         { return nil }
func (m *memRepo) GetDraft(context.Context, string, int) (*domain.Draft, error) {
	return nil, nil
}
func (m *memRepo) CleanupStaleDrafts(context.Context, time.Duration) (int64, error) { return 0, nil }
func (m *memRepo) Ping(context.Context) error                                       { return nil }
func (m *memRepo) Close() error                                                     { return nil }

func TestStreamConnectedPayload(t *testing.T) {
	t.Parallel()

	manager := NewManager(testManagerConfig(), &stubGenerator{}, nil, nil, nil)
	t.Cleanup(manager.Close)

	r := chi.NewRouter()
	r.Use(identity.Middleware(newMemRepo(), true))
	NewHandler(manager, nil, nil).RegisterRoutes(r)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/session/stream?session_id=tab-3", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: connected") {
		t.Fatalf("no connected event in stream:\n%s", body)
	}
	if !strings.Contains(body, `"session_id":"tab-3"`) {
		t.Error("connected payload should carry the tab session id")
	}
	if !strings.Contains(body, `"username":"anon-`) {
		t.Error("connected payload should carry the derived username")
	}
}
