package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultIdleTTL       = 24 * time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// ErrMissingSessionID is returned when a registry lookup has no session identifier.
var ErrMissingSessionID = errors.New("cart: missing session id")

// SnapshotStore persists cart lines between processes. Drawer state is never persisted.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) ([]Item, error)
	Save(ctx context.Context, sessionID string, items []Item) error
	Delete(ctx context.Context, sessionID string) error
}

// Session bundles the stores owned by one visitor session.
type Session struct {
	ID     string
	Cart   *Store
	Drawer *Drawer

	lastSeen time.Time
	// mu serialises Mutate so snapshots are saved in mutation order.
	mu sync.Mutex
}

// RegistryOptions wires optional registry dependencies.
type RegistryOptions struct {
	Snapshots SnapshotStore
	IdleTTL   time.Duration
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Registry owns one Session per visitor. Sessions are created on first access
// and evicted after IdleTTL without access.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	lastSweep time.Time

	snapshots SnapshotStore
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewRegistry constructs a Registry.
func NewRegistry(opts RegistryOptions) *Registry {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		snapshots: opts.Snapshots,
		ttl:       ttl,
		now:       now,
		logger:    logger,
	}
}

// Get returns the session for id, restoring persisted lines on first access.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingSessionID
	}

	r.mu.Lock()
	now := r.now()
	r.sweepLocked(now)
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = now
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	var items []Item
	if r.snapshots != nil {
		loaded, err := r.snapshots.Load(ctx, id)
		if err != nil {
			r.logger.Warn("cart snapshot load failed", zap.String("session_id", id), zap.Error(err))
		} else {
			items = loaded
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = now
		return s, nil
	}
	s := &Session{
		ID:       id,
		Cart:     NewStoreWithItems(items),
		Drawer:   NewDrawer(),
		lastSeen: now,
	}
	r.sessions[id] = s
	return s, nil
}

// Mutate runs fn against the session and persists the cart when fn changed it.
// Mutations of one session run one at a time, so the last save holds the
// latest lines. The in-memory state is authoritative; a failed save is
// returned but not rolled back.
func (r *Registry) Mutate(ctx context.Context, id string, fn func(*Session)) (*Session, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.Cart.Version()
	fn(s)
	if r.snapshots == nil || s.Cart.Version() == before {
		return s, nil
	}
	items := s.Cart.Items()
	if len(items) == 0 {
		err = r.snapshots.Delete(ctx, id)
	} else {
		err = r.snapshots.Save(ctx, id, items)
	}
	if err != nil {
		return s, fmt.Errorf("cart: persist session %s: %w", id, err)
	}
	return s, nil
}

// Forget drops the session and its persisted lines.
func (r *Registry) Forget(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	if r.snapshots == nil {
		return nil
	}
	return r.snapshots.Delete(ctx, id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLocked(now time.Time) {
	if now.Sub(r.lastSweep) < defaultSweepInterval {
		return
	}
	r.lastSweep = now
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.ttl {
			delete(r.sessions, id)
		}
	}
}
