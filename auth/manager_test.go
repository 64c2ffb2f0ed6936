package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dag-console/apperr"
	"dag-console/db"
	"dag-console/models"
	"dag-console/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeExchange struct {
	mu      sync.Mutex
	users   map[string]Grant // username -> grant, password is "pw"
	authErr error
	gate    chan struct{} // when set, Authenticate waits on it or ctx
	entered chan string   // receives the username once Authenticate is waiting
	refresh func(token string) (Grant, error)
	revoked []string
	revErr  error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{users: map[string]Grant{
		"alice": {Token: "tok-alice", Role: models.RoleAdmin, UserID: "u-alice"},
		"vic":   {Token: "tok-vic", Role: models.RoleValidator, UserID: "u-vic"},
		"ursa":  {Token: "tok-ursa", Role: models.RoleUser},
	}}
}

func (f *fakeExchange) Authenticate(ctx context.Context, username, password string) (Grant, error) {
	f.mu.Lock()
	gate, entered, authErr := f.gate, f.entered, f.authErr
	g, ok := f.users[username]
	f.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- username
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return Grant{}, ctx.Err()
		}
	}
	if authErr != nil {
		return Grant{}, authErr
	}
	if !ok || password != "pw" {
		return Grant{}, apperr.NewInvalidCredentials()
	}
	return g, nil
}

func (f *fakeExchange) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.revErr
}

func (f *fakeExchange) Refresh(_ context.Context, token string) (Grant, error) {
	if f.refresh != nil {
		return f.refresh(token)
	}
	return Grant{Token: token + "-r"}, nil
}

func (f *fakeExchange) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

type fixture struct {
	m     *Manager
	clock *fakeClock
	x     *fakeExchange
	store *repository.SessionRepository
	kv    *repository.KVStore
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	ldb, err := db.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	kv := repository.NewKVStore(ldb)
	store := repository.NewSessionRepository(kv)
	clock := &fakeClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	x := newFakeExchange()

	opts := DefaultOptions()
	opts.CheckInterval = 0 // tests drive Tick directly unless they opt in
	opts.Clock = clock.Now
	for _, fn := range mutate {
		fn(&opts)
	}
	m := NewManager(x, store, opts)
	t.Cleanup(m.Close)
	return &fixture{m: m, clock: clock, x: x, store: store, kv: kv}
}

func (f *fixture) login(t *testing.T, user string) models.Identity {
	t.Helper()
	id, err := f.m.Login(context.Background(), user, "pw")
	require.NoError(t, err)
	return id
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	id := f.login(t, "vic")

	assert.Equal(t, StateAuthenticated, f.m.State())
	assert.Equal(t, "u-vic", id.UserID)
	assert.Equal(t, "vic", id.Username)
	assert.Equal(t, models.RoleValidator, id.Role)
	assert.Equal(t, f.clock.Now(), id.LastLogin)

	snap := f.m.Snapshot()
	require.NotNil(t, snap.SessionExpiry)
	assert.Equal(t, f.clock.Now().Add(8*time.Hour), *snap.SessionExpiry)
	assert.Equal(t, f.clock.Now(), *snap.LastActivity)

	tok, ok := f.m.Credential()
	assert.True(t, ok)
	assert.Equal(t, "tok-vic", tok)

	stored, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok-vic", stored.Credential)
}

func TestLogin_UserIDFallsBackToUsername(t *testing.T) {
	f := newFixture(t)
	id := f.login(t, "ursa")
	assert.Equal(t, "ursa", id.UserID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Login(context.Background(), "alice", "wrong")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidCredentials))
	assert.Equal(t, StateAnonymous, f.m.State())
	_, ok := f.m.Identity()
	assert.False(t, ok)
	_, ok = f.m.Credential()
	assert.False(t, ok)
}

func TestLogin_NetworkFailure(t *testing.T) {
	f := newFixture(t)
	f.x.authErr = errors.New("connection refused")

	_, err := f.m.Login(context.Background(), "alice", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeNetworkFailure))
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestLogin_Timeout(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RequestTimeout = 20 * time.Millisecond })
	f.x.gate = make(chan struct{})

	_, err := f.m.Login(context.Background(), "alice", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeTimeout), "got %v", err)
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestLogin_RequiresCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Login(context.Background(), "", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestLogin_UnknownRoleRejected(t *testing.T) {
	f := newFixture(t)
	f.x.users["mallory"] = Grant{Token: "t", Role: models.Role("root")}
	_, err := f.m.Login(context.Background(), "mallory", "pw")
	assert.Error(t, err)
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestLogin_WhileAuthenticated(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	_, err := f.m.Login(context.Background(), "vic", "pw")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	assert.True(t, f.m.HasRole(models.RoleAdmin))
}

func TestLogin_SecondCallSupersedesFirst(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.x.gate = gate
	f.x.entered = make(chan string, 1)

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.m.Login(context.Background(), "alice", "pw")
		firstErr <- err
	}()
	require.Equal(t, "alice", <-f.x.entered)
	assert.Equal(t, StateAuthenticating, f.m.State())

	f.x.mu.Lock()
	f.x.gate = nil
	f.x.mu.Unlock()
	id, err := f.m.Login(context.Background(), "vic", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleValidator, id.Role)

	close(gate)
	select {
	case err := <-firstErr:
		assert.True(t, apperr.Is(err, apperr.CodeSuperseded), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("first login never returned")
	}
	assert.True(t, f.m.HasRole(models.RoleValidator))
	assert.False(t, f.m.HasRole(models.RoleAdmin))
	tok, _ := f.m.Credential()
	assert.Equal(t, "tok-vic", tok)
}

func TestLogout_SupersedesInFlightLogin(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.x.gate = gate
	f.x.entered = make(chan string, 1)

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.m.Login(context.Background(), "alice", "pw")
		firstErr <- err
	}()
	<-f.x.entered

	f.m.Logout(context.Background())
	close(gate)
	assert.True(t, apperr.Is(<-firstErr, apperr.CodeSuperseded))
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestLogout_ClearsEvenIfRevokeFails(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.x.revErr = errors.New("offline")

	f.m.Logout(context.Background())
	assert.Equal(t, StateAnonymous, f.m.State())
	assert.False(t, f.m.HasPermission(PermViewDashboard))
	assert.Equal(t, []string{"tok-alice"}, f.x.revokedTokens())

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLogout_Anonymous(t *testing.T) {
	f := newFixture(t)
	f.m.Logout(context.Background())
	assert.Equal(t, StateAnonymous, f.m.State())
	assert.Empty(t, f.x.revokedTokens())
}

func TestTick_SessionExpiry(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SessionLifetime = time.Hour; o.InactivityWindow = 2 * time.Hour })
	f.login(t, "alice")

	f.clock.Advance(time.Hour)
	assert.Equal(t, StateAuthenticated, f.m.Tick(), "expiry is exclusive")

	f.clock.Advance(time.Second)
	assert.Equal(t, StateExpired, f.m.Tick())
	assert.Equal(t, StateExpired, f.m.State())
	assert.False(t, f.m.HasPermission(PermViewDashboard))
	assert.False(t, f.m.HasRole(models.RoleAdmin))
	_, ok := f.m.Credential()
	assert.False(t, ok)
	assert.Equal(t, []string{"tok-alice"}, f.x.revokedTokens())
	assert.True(t, apperr.Is(f.m.Require(PermViewDAG), apperr.CodeExpired))

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestActivity_OnlyMovesLastActivity(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.InactivityWindow = 10 * time.Minute })
	f.login(t, "vic")
	expiry := *f.m.Snapshot().SessionExpiry

	for i := 0; i < 5; i++ {
		f.clock.Advance(3 * time.Minute)
		f.m.Activity()
		assert.Equal(t, expiry, *f.m.Snapshot().SessionExpiry)
		assert.Equal(t, f.clock.Now(), *f.m.Snapshot().LastActivity)
		assert.Equal(t, StateAuthenticated, f.m.Tick())
	}

	f.clock.Advance(11 * time.Minute)
	assert.Equal(t, StateExpired, f.m.Tick(), "stale activity expires a session with a future expiry")
}

func TestActivity_Throttled(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ActivityThrottle = time.Second })
	f.login(t, "vic")
	start := *f.m.Snapshot().LastActivity

	f.clock.Advance(200 * time.Millisecond)
	f.m.Activity()
	assert.Equal(t, start, *f.m.Snapshot().LastActivity)

	f.clock.Advance(time.Second)
	f.m.Activity()
	assert.Equal(t, f.clock.Now(), *f.m.Snapshot().LastActivity)
}

func TestActivity_AnonymousIsNoop(t *testing.T) {
	f := newFixture(t)
	f.m.Activity()
	assert.Equal(t, StateAnonymous, f.m.State())
	assert.Nil(t, f.m.Snapshot().LastActivity)
}

func TestTick_PersistsActivity(t *testing.T) {
	f := newFixture(t)
	f.login(t, "vic")
	f.clock.Advance(time.Minute)
	f.m.Activity()
	f.m.Tick()

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), stored.LastActivity)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.clock.Advance(2 * time.Hour)

	require.NoError(t, f.m.Refresh(context.Background()))
	assert.Equal(t, f.clock.Now().Add(8*time.Hour), *f.m.Snapshot().SessionExpiry)
	tok, _ := f.m.Credential()
	assert.Equal(t, "tok-alice-r", tok)
}

func TestRefresh_FailureSignsOut(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.x.refresh = func(string) (Grant, error) { return Grant{}, apperr.NewExpired() }

	err := f.m.Refresh(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeExpired))
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestRefresh_Anonymous(t *testing.T) {
	f := newFixture(t)
	assert.True(t, apperr.Is(f.m.Refresh(context.Background()), apperr.CodeUnauthenticated))
}

func TestGuards_RoleExactness(t *testing.T) {
	f := newFixture(t)
	f.login(t, "vic")

	assert.True(t, f.m.HasRole(models.RoleValidator))
	assert.False(t, f.m.HasRole(models.RoleAdmin))
	assert.False(t, f.m.HasRole(models.RoleUser))
	assert.True(t, f.m.HasPermission(PermManageValidator))
	assert.False(t, f.m.HasPermission(PermManageUsers))

	assert.NoError(t, f.m.Require(PermViewNetwork))
	assert.True(t, apperr.Is(f.m.Require(PermViewCompliance), apperr.CodeForbidden))
}

func TestGuards_Anonymous(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.m.HasPermission(PermViewDashboard))
	assert.False(t, f.m.HasRole(models.RoleUser))
	assert.True(t, apperr.Is(f.m.Require(PermViewDashboard), apperr.CodeUnauthenticated))
}

func TestPermissionTable_Supersets(t *testing.T) {
	user := PermissionsFor(models.RoleUser)
	validator := PermissionsFor(models.RoleValidator)
	admin := PermissionsFor(models.RoleAdmin)

	assert.Subset(t, validator, user)
	assert.Subset(t, admin, validator)
	assert.Empty(t, PermissionsFor(models.Role("guest")))

	user[0] = "mutated"
	assert.Equal(t, PermViewDashboard, PermissionsFor(models.RoleUser)[0])
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.login(t, "vic")
	f.m.Close()

	restored := NewManager(f.x, f.store, Options{
		SessionLifetime: time.Hour, InactivityWindow: 30 * time.Minute, Clock: f.clock.Now,
	})
	f.clock.Advance(5 * time.Minute)
	assert.Equal(t, StateAuthenticated, restored.Restore())
	assert.True(t, restored.HasRole(models.RoleValidator))
	assert.True(t, restored.HasPermission(PermViewValidators))
}

func TestRestore_StaleSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, "vic")

	fresh := NewManager(f.x, f.store, Options{InactivityWindow: 30 * time.Minute, Clock: f.clock.Now})
	f.clock.Advance(time.Hour)
	assert.Equal(t, StateAnonymous, fresh.Restore())

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRestore_CorruptedOrMissing(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StateAnonymous, f.m.Restore())

	require.NoError(t, f.kv.Set("session:current", []byte("%%%")))
	assert.Equal(t, StateAnonymous, f.m.Restore())
	_, err := f.kv.Get("session:current")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscribe_NotifiesExpiry(t *testing.T) {
	f := newFixture(t)
	var got []State
	unsubscribe := f.m.Subscribe(func(s State) { got = append(got, s) })

	f.login(t, "alice")
	f.clock.Advance(9 * time.Hour)
	f.m.Tick()
	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated, StateExpired}, got)

	unsubscribe()
	f.login(t, "alice")
	assert.Len(t, got, 3)
}

func TestWatcher_StartsAndStops(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.CheckInterval = 5 * time.Millisecond
		o.SessionLifetime = time.Minute
	})
	assert.False(t, f.m.watching())

	f.login(t, "alice")
	assert.True(t, f.m.watching())

	f.clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return f.m.State() == StateExpired }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, f.m.watching())

	f.login(t, "alice")
	assert.True(t, f.m.watching())
	f.m.Logout(context.Background())
	assert.False(t, f.m.watching())
}
