package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/me/rtodash/internal/store"
)

// Manager keeps one App per client ID and evicts the ones that go idle.
// Eviction only frees memory: the durable token survives, so a returning
// client re-verifies it like a fresh page load.
type Manager struct {
	store  store.Store
	opts   Options
	logger *slog.Logger

	idleTTL      time.Duration
	retentionTTL time.Duration

	mu   sync.Mutex
	apps map[string]*App
	now  func() time.Time
}

// ManagerConfig sets eviction windows.
type ManagerConfig struct {
	// IdleTTL is how long an App stays in memory without requests.
	IdleTTL time.Duration
	// RetentionTTL is how long a client's durable storage outlives its last
	// request. Zero keeps it forever.
	RetentionTTL time.Duration
}

// NewManager creates a manager over st.
func NewManager(st store.Store, opts Options, cfg ManagerConfig) *Manager {
	opts = opts.withDefaults()
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Manager{
		store:        st,
		opts:         opts,
		logger:       opts.Logger.With("component", "app-manager"),
		idleTTL:      cfg.IdleTTL,
		retentionTTL: cfg.RetentionTTL,
		apps:         make(map[string]*App),
		now:          time.Now,
	}
}

// Get returns the App for clientID, creating it on first use.
func (m *Manager) Get(ctx context.Context, clientID string) (*App, error) {
	if clientID == "" {
		return nil, fmt.Errorf("get app: empty client id")
	}
	if err := m.store.Touch(ctx, clientID); err != nil {
		return nil, fmt.Errorf("touch client %s: %w", clientID, err)
	}

	now := m.now()
	m.mu.Lock()
	a, ok := m.apps[clientID]
	if !ok {
		a = New(clientID, m.store.Client(clientID), m.opts)
		m.apps[clientID] = a
	}
	n := len(m.apps)
	m.mu.Unlock()

	a.touch(now)
	if !ok {
		m.logger.Debug("client app created", "client_id", clientID)
		m.opts.Metrics.SetActiveClients(n)
	}
	return a, nil
}

// Forget drops the App and the client's durable storage.
func (m *Manager) Forget(ctx context.Context, clientID string) error {
	m.mu.Lock()
	delete(m.apps, clientID)
	n := len(m.apps)
	m.mu.Unlock()
	m.opts.Metrics.SetActiveClients(n)

	if err := m.store.DeleteClient(ctx, clientID); err != nil {
		return fmt.Errorf("delete client %s: %w", clientID, err)
	}
	return nil
}

// Len is the number of Apps in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.apps)
}

// Sweep evicts idle Apps and expired client storage. It returns how many
// Apps were evicted.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	evicted := 0
	for id, a := range m.apps {
		if a.LastSeen().Before(cutoff) {
			delete(m.apps, id)
			evicted++
		}
	}
	n := len(m.apps)
	m.mu.Unlock()
	m.opts.Metrics.SetActiveClients(n)

	if m.retentionTTL > 0 {
		deleted, err := m.store.DeleteIdleClients(ctx, now.Add(-m.retentionTTL))
		if err != nil {
			return evicted, fmt.Errorf("delete idle clients: %w", err)
		}
		if deleted > 0 {
			m.logger.Info("expired client storage removed", "count", deleted)
		}
	}
	if evicted > 0 {
		m.logger.Debug("idle client apps evicted", "count", evicted, "remaining", n)
	}
	return evicted, nil
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
