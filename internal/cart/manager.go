package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/metrics"
)

const defaultIdleTTL = 30 * time.Minute

// ManagerParams configures a Manager.
type ManagerParams struct {
	Slot       Slot
	StorageKey string
	MaxAge     time.Duration
	IdleTTL    time.Duration
	Clock      func() time.Time
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
}

type session struct {
	store    *Store
	refs     int
	lastUsed time.Time
	evict    bool
}

// Manager owns one Store per cart session. Stores are created on first Acquire, restored from
// the slot, refreshed from it on every later Acquire, and torn down once idle for longer than IdleTTL. Teardown happens inside Acquire,
// so there is no background goroutine to stop.
type Manager struct {
	slot       Slot
	storageKey string
	maxAge     time.Duration
	idleTTL    time.Duration
	now        func() time.Time
	logg       *logger.Logger
	metrics    *metrics.CartMetrics

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewManager validates params and builds an empty manager.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Slot == nil {
		return nil, errors.New("cart slot required")
	}
	m := &Manager{
		slot:       params.Slot,
		storageKey: strings.TrimSpace(params.StorageKey),
		maxAge:     params.MaxAge,
		idleTTL:    params.IdleTTL,
		now:        params.Clock,
		logg:       params.Logger,
		metrics:    params.Metrics,
		sessions:   make(map[string]*session),
	}
	if m.storageKey == "" {
		m.storageKey = DefaultStorageKey
	}
	if m.maxAge <= 0 {
		m.maxAge = DefaultMaxAge
	}
	if m.idleTTL <= 0 {
		m.idleTTL = defaultIdleTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}
	return m, nil
}

// Acquire returns the store for sessionID, creating and restoring it on first use.
// The caller must invoke release once done with the store.
func (m *Manager) Acquire(ctx context.Context, sessionID string) (*Store, func(), error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session id required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "cart manager closed")
	}
	m.evictIdleLocked(ctx)
	sess, ok := m.sessions[sessionID]
	if ok {
		m.retainLocked(sess)
		m.mu.Unlock()
		// another replica may have written the shared slot since this store last looked
		sess.store.Refresh(ctx)
		return sess.store, m.releaser(sessionID, sess), nil
	}
	m.mu.Unlock()

	// Restoring hits the slot, so it runs outside the manager lock.
	store, err := m.newStore(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		store.Close()
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "cart manager closed")
	}
	if existing, ok := m.sessions[sessionID]; ok {
		store.Close()
		m.retainLocked(existing)
		return existing.store, m.releaser(sessionID, existing), nil
	}
	sess = &session{store: store}
	m.sessions[sessionID] = sess
	m.retainLocked(sess)
	m.metrics.SetActiveSessions(len(m.sessions))
	m.logg.Debug(ctx, "cart.session.opened")
	return store, m.releaser(sessionID, sess), nil
}

func (m *Manager) newStore(ctx context.Context, sessionID string) (*Store, error) {
	adapter, err := NewAdapter(m.slot, SlotKey(m.storageKey, sessionID),
		WithMaxAge(m.maxAge),
		WithClock(m.now),
		WithAdapterLogger(m.logg),
		WithAdapterMetrics(m.metrics),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart adapter")
	}
	return NewStore(ctx, StoreParams{
		Adapter: adapter,
		Logger:  m.logg,
		Metrics: m.metrics,
	}), nil
}

func (m *Manager) retainLocked(sess *session) {
	sess.refs++
	sess.evict = false
	sess.lastUsed = m.now()
}

func (m *Manager) releaser(sessionID string, sess *session) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			sess.refs--
			sess.lastUsed = m.now()
			if sess.refs <= 0 && sess.evict {
				m.dropLocked(sessionID, sess)
			}
		})
	}
}

// Release tears down the store for sessionID, now or when its last holder releases it.
// The persisted snapshot is left alone.
func (m *Manager) Release(sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	if sess.refs > 0 {
		sess.evict = true
		return
	}
	m.dropLocked(sessionID, sess)
}

// Close tears down every store. Later Acquire calls fail.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		sess.store.Close()
		delete(m.sessions, id)
	}
	m.closed = true
	m.metrics.SetActiveSessions(0)
}

// ActiveSessions returns how many stores are held in memory.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) evictIdleLocked(ctx context.Context) {
	now := m.now()
	evicted := 0
	for id, sess := range m.sessions {
		if sess.refs > 0 || now.Sub(sess.lastUsed) <= m.idleTTL {
			continue
		}
		sess.store.Close()
		delete(m.sessions, id)
		evicted++
	}
	if evicted > 0 {
		m.metrics.SetActiveSessions(len(m.sessions))
		m.logg.Debug(m.logg.WithField(ctx, "evicted", evicted), "cart.session.evicted")
	}
}

func (m *Manager) dropLocked(sessionID string, sess *session) {
	if current, ok := m.sessions[sessionID]; ok && current == sess {
		delete(m.sessions, sessionID)
	}
	sess.store.Close()
	m.metrics.SetActiveSessions(len(m.sessions))
}
