package auth

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/pkg/model"
)

// API is the subset of the reminder API the coordinator calls.
type API interface {
	Login(ctx context.Context, email, password string) (*model.AuthResult, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error)
	Me(ctx context.Context) (*model.Agent, error)
}

// TokenStore is the session store as seen by the coordinator.
type TokenStore interface {
	Token(ctx context.Context) (string, bool)
	SetToken(ctx context.Context, tok string)
	ClearToken(ctx context.Context)
	IsExpired(tok string) bool
}

// Listener receives every identity transition. Listeners run synchronously,
// outside the coordinator's lock, in subscription order.
type Listener func(ctx context.Context, snap Snapshot)

// Coordinator owns the current identity. It is the only writer of identity
// state; everything else reads snapshots or subscribes.
type Coordinator struct {
	api       API
	tokens    TokenStore
	toasts    toast.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	loginPath string

	mu          sync.Mutex
	state       State
	user        *model.Agent
	loading     bool
	authChecked bool
	epoch       uint64
	checked     chan struct{} // closed once authChecked first becomes true
	listeners   []listenerEntry
	nextID      int

	verifyGroup singleflight.Group
}

type listenerEntry struct {
	id int
	fn Listener
}

// Config holds coordinator dependencies that have sensible defaults.
type Config struct {
	LoginPath string
	Toasts    toast.Notifier
	Metrics   *metrics.Metrics
}

// New creates a coordinator in the uninitialized state.
func New(api API, tokens TokenStore, logger *slog.Logger, cfg Config) *Coordinator {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.Toasts == nil {
		cfg.Toasts = toast.Discard{}
	}
	return &Coordinator{
		api:       api,
		tokens:    tokens,
		toasts:    cfg.Toasts,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "auth"),
		loginPath: cfg.LoginPath,
		state:     StateUninitialized,
		loading:   true,
		checked:   make(chan struct{}),
	}
}

// Snapshot returns the current identity view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		User:        c.user.Clone(),
		Loading:     c.loading,
		AuthChecked: c.authChecked,
		Epoch:       c.epoch,
	}
}

// Subscribe registers fn for identity transitions and returns a func that
// removes it.
func (c *Coordinator) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Init runs the start-up check once. On the login route it resolves straight
// to anonymous without touching the network; elsewhere it verifies the stored
// token. Later calls return the settled state, joining a verification that
// is still in flight.
func (c *Coordinator) Init(ctx context.Context, route string) Snapshot {
	c.mu.Lock()
	switch c.state {
	case StateUninitialized:
	case StateChecking:
		checked := c.checked
		c.mu.Unlock()
		select {
		case <-checked:
		case <-ctx.Done():
		}
		return c.Snapshot()
	default:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	if route == c.loginPath {
		c.applyLocked(StateAnonymous, nil)
		snap := c.snapshotLocked()
		listeners := c.listenersLocked()
		c.mu.Unlock()
		c.logger.Debug("init on login route; verification skipped")
		c.notify(ctx, listeners, snap)
		return snap
	}

	c.state = StateChecking
	c.loading = true
	c.mu.Unlock()
	return c.Verify(ctx)
}

// Verify checks the stored token and, if it is usable, loads the identity.
// At most one verification runs at a time; concurrent callers wait for the
// in-flight one. If ctx ends first the caller gets the current (possibly
// still loading) snapshot while the verification carries on.
func (c *Coordinator) Verify(ctx context.Context) Snapshot {
	ch := c.verifyGroup.DoChan("verify", func() (any, error) {
		c.verify(context.WithoutCancel(ctx))
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
	return c.Snapshot()
}

func (c *Coordinator) verify(ctx context.Context) {
	c.mu.Lock()
	c.state = StateChecking
	c.loading = true
	epoch := c.epoch
	c.mu.Unlock()

	tok, ok := c.tokens.Token(ctx)
	if !ok || c.tokens.IsExpired(tok) {
		result := "no_token"
		if ok {
			result = "expired"
		}
		c.metrics.IncVerification(result)
		c.logger.Debug("no usable token", "result", result)
		c.failVerification(ctx, epoch)
		return
	}

	agent, err := c.api.Me(ctx)
	if err != nil {
		c.metrics.IncVerification("failed")
		c.logger.Warn("session verification failed", "error", err)
		c.failVerification(ctx, epoch)
		return
	}

	c.metrics.IncVerification("ok")
	c.settle(ctx, epoch, StateAuthenticated, agent)
}

// failVerification clears the session unless another transition (a login,
// or the 401 handler) already superseded this verification.
func (c *Coordinator) failVerification(ctx context.Context, epoch uint64) {
	c.mu.Lock()
	stale := c.epoch != epoch
	c.mu.Unlock()
	if stale {
		return
	}
	c.tokens.ClearToken(ctx)
	c.settle(ctx, epoch, StateAnonymous, nil)
}

// settle applies a verification outcome if nothing changed since it started.
func (c *Coordinator) settle(ctx context.Context, epoch uint64, state State, user *model.Agent) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.applyLocked(state, user)
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()
	c.notify(ctx, listeners, snap)
}

// transition unconditionally moves to state; used by explicit actions.
func (c *Coordinator) transition(ctx context.Context, state State, user *model.Agent) Snapshot {
	c.mu.Lock()
	c.applyLocked(state, user)
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()
	c.notify(ctx, listeners, snap)
	return snap
}

func (c *Coordinator) applyLocked(state State, user *model.Agent) {
	c.state = state
	c.user = user.Clone()
	c.loading = false
	if !c.authChecked {
		c.authChecked = true
		close(c.checked)
	}
	c.epoch++
}

func (c *Coordinator) listenersLocked() []listenerEntry {
	return append([]listenerEntry(nil), c.listeners...)
}

func (c *Coordinator) notify(ctx context.Context, listeners []listenerEntry, snap Snapshot) {
	for _, l := range listeners {
		l.fn(ctx, snap)
	}
}

// Login signs in with email and password. Failures are reported through the
// toast layer and the returned Result, never as errors.
func (c *Coordinator) Login(ctx context.Context, email, password string) Result {
	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		msg := model.UserMessage(err)
		c.metrics.IncAuthAction("login", "failed")
		c.logger.Warn("login failed", "email", email, "error", err)
		c.toasts.Error(msg)
		return Result{Success: false, Error: msg}
	}

	c.tokens.SetToken(ctx, res.Token)
	c.transition(ctx, StateAuthenticated, res.Agent)
	c.metrics.IncAuthAction("login", "ok")
	c.logger.Info("agent logged in", "email", res.Agent.Email, "role", res.Agent.Role)
	c.toasts.Success("Login successful! Welcome back, " + res.Agent.DisplayName() + ".")
	return Result{Success: true}
}

// Register creates an account and signs it in, like Login.
func (c *Coordinator) Register(ctx context.Context, req model.RegisterRequest) Result {
	res, err := c.api.Register(ctx, req)
	if err != nil {
		msg := model.UserMessage(err)
		c.metrics.IncAuthAction("register", "failed")
		c.logger.Warn("registration failed", "email", req.Email, "error", err)
		c.toasts.Error(msg)
		return Result{Success: false, Error: msg}
	}

	c.tokens.SetToken(ctx, res.Token)
	c.transition(ctx, StateAuthenticated, res.Agent)
	c.metrics.IncAuthAction("register", "ok")
	c.logger.Info("agent registered", "email", res.Agent.Email)
	c.toasts.Success("Registration successful!")
	return Result{Success: true}
}

// Logout drops the session locally. No network call is made.
func (c *Coordinator) Logout(ctx context.Context) {
	c.tokens.ClearToken(ctx)
	c.transition(ctx, StateAnonymous, nil)
	c.metrics.IncAuthAction("logout", "ok")
	c.logger.Info("agent logged out")
	c.toasts.Success("Logged out successfully")
}

// RefreshUser reloads the profile while keeping the token. A failure here
// is logged and returned but never ends the session; a 401 is handled by the
// response hook instead.
func (c *Coordinator) RefreshUser(ctx context.Context) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	agent, err := c.api.Me(ctx)
	if err != nil {
		c.logger.Warn("refresh user failed", "error", err)
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateAuthenticated {
		c.mu.Unlock()
		return nil
	}
	c.user = agent.Clone()
	c.epoch++
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()
	c.notify(ctx, listeners, snap)
	return nil
}

// HandleUnauthorized drops the identity after the API rejected the token.
// The token itself is cleared by the response hook that calls this.
func (c *Coordinator) HandleUnauthorized(ctx context.Context) {
	c.mu.Lock()
	wasAuthenticated := c.user != nil
	c.mu.Unlock()

	c.transition(ctx, StateAnonymous, nil)
	if wasAuthenticated {
		c.logger.Info("session rejected by API")
		c.toasts.Error("Your session has expired. Please log in again.")
	}
}
