// Package auth owns the session state machine: credential lifecycle,
// activity-based expiry and the permission and role guards screens consult.
package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dag-console/apperr"
	"dag-console/logger"
	"dag-console/models"
)

// State is the session state.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateExpired        State = "expired"
)

// Options tunes the session clocks.
type Options struct {
	SessionLifetime  time.Duration
	InactivityWindow time.Duration
	CheckInterval    time.Duration
	RequestTimeout   time.Duration
	ActivityThrottle time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the production clock settings.
func DefaultOptions() Options {
	return Options{
		SessionLifetime:  8 * time.Hour,
		InactivityWindow: 30 * time.Minute,
		CheckInterval:    60 * time.Second,
		RequestTimeout:   10 * time.Second,
		ActivityThrottle: time.Second,
	}
}

// SessionStore persists the session across restarts.
type SessionStore interface {
	Save(s *models.Session) error
	Load() (*models.Session, error)
	Clear() error
}

// SessionView is the public, credential-free picture of the session.
type SessionView struct {
	State         State            `json:"state"`
	Identity      *models.Identity `json:"identity,omitempty"`
	SessionExpiry *time.Time       `json:"session_expiry,omitempty"`
	LastActivity  *time.Time       `json:"last_activity,omitempty"`
}

// Manager is the session handle injected into every screen that needs it.
// Network round trips run without holding the lock; each one carries a
// sequence number and its result is dropped if a newer request has started.
type Manager struct {
	mu       sync.Mutex
	exchange Exchange
	store    SessionStore
	opts     Options
	now      func() time.Time

	state     State
	session   *models.Session
	persisted time.Time // LastActivity as last written to the store
	seq       uint64
	stopWatch context.CancelFunc

	subs    map[int]func(State)
	nextSub int
}

func NewManager(exchange Exchange, store SessionStore, opts Options) *Manager {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Manager{
		exchange: exchange,
		store:    store,
		opts:     opts,
		now:      now,
		state:    StateAnonymous,
		subs:     make(map[int]func(State)),
	}
}

// Login exchanges credentials for a session.
func (m *Manager) Login(ctx context.Context, username, password string) (models.Identity, error) {
	if username == "" || password == "" {
		return models.Identity{}, apperr.NewValidation("username and password are required")
	}

	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.mu.Unlock()
		return models.Identity{}, apperr.NewValidation("already signed in")
	}
	m.seq++
	seq := m.seq
	notify := m.transitionLocked(StateAuthenticating)
	m.mu.Unlock()
	notify()

	rctx, cancel := m.requestContext(ctx)
	grant, err := m.exchange.Authenticate(rctx, username, password)
	err = classify(rctx, "login", err)
	cancel()
	if err == nil && !KnownRole(grant.Role) {
		err = apperr.NewNetworkFailure("credential service returned unknown role " + string(grant.Role))
	}

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return models.Identity{}, apperr.NewSuperseded("login")
	}
	if err != nil {
		notify = m.transitionLocked(StateAnonymous)
		m.mu.Unlock()
		notify()
		logger.Logger.Info("Login failed", zap.String("username", username), zap.Error(err))
		return models.Identity{}, err
	}

	now := m.now()
	userID := grant.UserID
	if userID == "" {
		userID = username
	}
	m.session = &models.Session{
		Credential: grant.Token,
		Identity: models.Identity{
			UserID:      userID,
			Username:    username,
			Role:        grant.Role,
			Permissions: PermissionsFor(grant.Role),
			LastLogin:   now,
		},
		SessionExpiry: now.Add(m.opts.SessionLifetime),
		LastActivity:  now,
	}
	m.persistLocked()
	m.startWatchLocked()
	identity := cloneIdentity(m.session.Identity)
	notify = m.transitionLocked(StateAuthenticated)
	m.mu.Unlock()
	notify()

	logger.Logger.Info("Signed in", zap.String("username", username), zap.String("role", string(grant.Role)))
	return identity, nil
}

// Logout clears the local session unconditionally. The remote revoke is best-effort.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.seq++
	token := ""
	if m.session != nil {
		token = m.session.Credential
	}
	notify := m.clearLocked(StateAnonymous)
	m.mu.Unlock()
	notify()

	if token != "" {
		logger.Logger.Info("Signed out")
		m.revoke(ctx, token)
	}
}

// Refresh extends the session. Any failure signs the user out.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return apperr.NewUnauthenticated()
	}
	m.seq++
	seq := m.seq
	token := m.session.Credential
	m.mu.Unlock()

	rctx, cancel := m.requestContext(ctx)
	grant, err := m.exchange.Refresh(rctx, token)
	err = classify(rctx, "refresh", err)
	cancel()

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return apperr.NewSuperseded("refresh")
	}
	if err != nil {
		notify := m.clearLocked(StateAnonymous)
		m.mu.Unlock()
		notify()
		logger.Logger.Warn("Session refresh failed, signed out", zap.Error(err))
		return err
	}
	if grant.Token != "" {
		m.session.Credential = grant.Token
	}
	m.session.SessionExpiry = m.now().Add(m.opts.SessionLifetime)
	m.persistLocked()
	m.mu.Unlock()
	return nil
}

// Activity records a qualifying user interaction. Calls inside the throttle
// window are ignored. It never touches the network or the expiry.
func (m *Manager) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return
	}
	now := m.now()
	if now.Sub(m.session.LastActivity) < m.opts.ActivityThrottle {
		return
	}
	m.session.LastActivity = now
}

// Tick runs the expiry check. It is normally driven by the internal timer.
func (m *Manager) Tick() State {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		s := m.state
		m.mu.Unlock()
		return s
	}

	now := m.now()
	s := m.session
	if now.After(s.SessionExpiry) || now.Sub(s.LastActivity) > m.opts.InactivityWindow {
		m.seq++
		token := s.Credential
		notify := m.clearLocked(StateExpired)
		m.mu.Unlock()
		notify()

		logger.Logger.Info("Session expired", zap.String("username", s.Identity.Username))
		m.revoke(context.Background(), token)
		return StateExpired
	}

	if !s.LastActivity.Equal(m.persisted) {
		m.persistLocked()
	}
	m.mu.Unlock()
	return StateAuthenticated
}

// Restore resumes a persisted session. Missing, corrupted or stale data
// leaves the manager anonymous.
func (m *Manager) Restore() State {
	s, err := m.store.Load()
	if err != nil {
		logger.Logger.Warn("Discarding stored session", zap.Error(err))
		m.clearStore()
		return m.State()
	}
	if s == nil || s.Credential == "" || !KnownRole(s.Identity.Role) {
		if s != nil {
			m.clearStore()
		}
		return m.State()
	}

	m.mu.Lock()
	now := m.now()
	if now.After(s.SessionExpiry) || now.Sub(s.LastActivity) > m.opts.InactivityWindow {
		m.mu.Unlock()
		logger.Logger.Info("Stored session is stale", zap.String("username", s.Identity.Username))
		m.clearStore()
		return m.State()
	}

	m.seq++
	s.Identity.Permissions = PermissionsFor(s.Identity.Role)
	m.session = s
	m.persisted = s.LastActivity
	m.startWatchLocked()
	notify := m.transitionLocked(StateAuthenticated)
	m.mu.Unlock()
	notify()
	return StateAuthenticated
}

// Close stops the expiry timer. The session itself is kept.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopWatchLocked()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the signed-in identity.
func (m *Manager) Identity() (models.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return models.Identity{}, false
	}
	return cloneIdentity(m.session.Identity), true
}

// Credential returns the current token for collaborators that call the backend.
func (m *Manager) Credential() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", false
	}
	return m.session.Credential, true
}

func (m *Manager) Snapshot() SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := SessionView{State: m.state}
	if m.session != nil {
		id := cloneIdentity(m.session.Identity)
		exp, act := m.session.SessionExpiry, m.session.LastActivity
		v.Identity, v.SessionExpiry, v.LastActivity = &id, &exp, &act
	}
	return v
}

// HasPermission is true iff someone is signed in and holds name.
func (m *Manager) HasPermission(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return false
	}
	for _, p := range m.session.Identity.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasRole is true iff someone is signed in with exactly role.
func (m *Manager) HasRole(role models.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.Identity.Role == role
}

// Require returns UNAUTHENTICATED, EXPIRED or FORBIDDEN when name is not granted.
func (m *Manager) Require(name string) error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch {
	case state == StateExpired:
		return apperr.NewExpired()
	case state != StateAuthenticated:
		return apperr.NewUnauthenticated()
	case !m.HasPermission(name):
		return apperr.NewForbidden(name)
	}
	return nil
}

// Subscribe registers fn for state changes. fn runs outside the manager lock.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// transitionLocked sets the state and returns the notification to run after unlocking.
func (m *Manager) transitionLocked(s State) func() {
	if m.state == s {
		return func() {}
	}
	m.state = s
	fns := make([]func(State), 0, len(m.subs))
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, m.subs[id])
	}
	return func() {
		for _, fn := range fns {
			fn(s)
		}
	}
}

// clearLocked is the shared cleanup of logout, expiry and failed refresh.
func (m *Manager) clearLocked(s State) func() {
	m.stopWatchLocked()
	if m.session != nil {
		m.session = nil
		m.persisted = time.Time{}
		if err := m.store.Clear(); err != nil {
			logger.Logger.Warn("Failed clearing stored session", zap.Error(err))
		}
	}
	return m.transitionLocked(s)
}

func (m *Manager) persistLocked() {
	if err := m.store.Save(m.session); err != nil {
		logger.Logger.Warn("Failed persisting session", zap.Error(err))
		return
	}
	m.persisted = m.session.LastActivity
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		logger.Logger.Warn("Failed clearing stored session", zap.Error(err))
	}
}

func (m *Manager) startWatchLocked() {
	if m.stopWatch != nil || m.opts.CheckInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopWatch = cancel
	go func() {
		ticker := time.NewTicker(m.opts.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Tick()
			}
		}
	}()
}

func (m *Manager) stopWatchLocked() {
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
}

func (m *Manager) watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopWatch != nil
}

func (m *Manager) revoke(ctx context.Context, token string) {
	rctx, cancel := m.requestContext(ctx)
	defer cancel()
	if err := m.exchange.Revoke(rctx, token); err != nil {
		logger.Logger.Warn("Token revoke failed", zap.Error(err))
	}
}

func (m *Manager) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, m.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// classify maps collaborator errors onto the auth taxonomy.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.NewTimeout(op).WithCause(err)
	}
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return typed
	}
	return apperr.NewNetworkFailure(op + " failed").WithCause(err)
}

func cloneIdentity(id models.Identity) models.Identity {
	id.Permissions = append([]string(nil), id.Permissions...)
	return id
}
