package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store is an in-memory adapter used by tests and for local development
// without a database file.
type Store struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]*domain.Target
	history map[domain.TargetID][]domain.HistoryEntry
	users   map[int64]*domain.User
	codes   map[string]bool // code -> consumed
	nextID  int64
}

func New() *Store {
	return &Store{
		targets: make(map[domain.TargetID]*domain.Target),
		history: make(map[domain.TargetID][]domain.HistoryEntry),
		users:   make(map[int64]*domain.User),
		codes:   make(map[string]bool),
	}
}

// ---- TargetStore ----

func (m *Store) CreateTarget(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = domain.StatusUnknown
	}
	cp := *t
	m.targets[t.ID] = &cp
	return nil
}

func (m *Store) GetTarget(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Store) ListTargetsByOwner(ctx context.Context, ownerID int64) ([]domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Target
	for _, t := range m.targets {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	sortTargets(out)
	return out, nil
}

func (m *Store) ListActiveTargets(ctx context.Context) ([]domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Target
	for _, t := range m.targets {
		if t.Active() {
			out = append(out, *t)
		}
	}
	sortTargets(out)
	return out, nil
}

func (m *Store) SetTargetInterval(ctx context.Context, id domain.TargetID, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.IntervalMinutes = minutes
	return nil
}

func (m *Store) UpdateAfterProbe(ctx context.Context, id domain.TargetID, failCount int, status domain.Status, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		// deleted mid-cycle; drop the result
		return nil
	}
	t.FailCount = failCount
	t.Status = status
	t.LastCheck = checkedAt
	return nil
}

func (m *Store) DeleteTarget(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.targets, id)
	delete(m.history, id)
	return nil
}

// ---- HistoryStore ----

func (m *Store) AppendHistory(ctx context.Context, e *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[e.TargetID]; !ok {
		// owning target is gone; no orphan entries
		return nil
	}
	m.nextID++
	e.ID = m.nextID
	m.history[e.TargetID] = append(m.history[e.TargetID], *e)
	return nil
}

func (m *Store) RecentHistory(ctx context.Context, id domain.TargetID, limit int) ([]domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[id]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]domain.HistoryEntry, len(h))
	copy(out, h)
	return out, nil
}

// ---- AccessStore ----

func (m *Store) EnsureUser(ctx context.Context, userID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		u = &domain.User{ID: userID}
		m.users[userID] = u
	}
	cp := *u
	return &cp, nil
}

func (m *Store) IsVerified(ctx context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	return ok && u.Verified, nil
}

func (m *Store) CreateCode(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = false
	return nil
}

func (m *Store) RedeemCode(ctx context.Context, userID int64, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	consumed, ok := m.codes[code]
	if !ok || consumed {
		return false, nil
	}
	m.codes[code] = true
	u, ok := m.users[userID]
	if !ok {
		u = &domain.User{ID: userID}
		m.users[userID] = u
	}
	u.Verified = true
	return true, nil
}

// sortTargets gives listings a stable order: oldest first, id as tiebreaker.
func sortTargets(ts []domain.Target) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
