package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/ports"
)

// headerGateway records the default Authorization header; every other
// gateway method is unused here.
type headerGateway struct {
	ports.Gateway
	mu     sync.Mutex
	bearer string
	source ports.TokenSource
}

func (g *headerGateway) SetBearer(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bearer = "Bearer " + token
}

func (g *headerGateway) ClearBearer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bearer = ""
}

func (g *headerGateway) Bearer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bearer
}

type failingStorage struct{}

var errStorageDown = errors.New("storage down")

func (failingStorage) Load(context.Context, string) (Record, error)    { return Record{}, errStorageDown }
func (failingStorage) SaveToken(context.Context, string, string) error { return errStorageDown }
func (failingStorage) SaveUser(context.Context, string, []byte) error  { return errStorageDown }
func (failingStorage) Ping(context.Context) error                      { return errStorageDown }

func newTestManager(t *testing.T, storage Storage) *Manager {
	t.Helper()
	return newBoundedManager(t, storage, 16)
}

func newBoundedManager(t *testing.T, storage Storage, maxLive int) *Manager {
	t.Helper()
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)
	m, err := NewManager(storage, sealer, func(ts ports.TokenSource) ports.Gateway {
		return &headerGateway{source: ts}
	}, maxLive, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func expectedBearer(s *Session) string {
	if s.Token() == "" {
		return ""
	}
	return "Bearer " + s.Token()
}

func TestSession_HeaderTracksToken(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, NewMemoryStorage())
	s := m.Open(ctx, "sid-1")

	steps := []func(){
		func() { s.SetToken(ctx, "t1") },
		func() { s.SetToken(ctx, "t2") },
		func() { s.Logout(ctx) },
		func() { s.SetToken(ctx, "t3") },
		func() { s.SetToken(ctx, "") },
		func() { s.Logout(ctx) },
	}
	for i, step := range steps {
		step()
		assert.Equal(t, expectedBearer(s), s.Gateway().Bearer(), "after step %d", i)
	}
}

func TestSession_PersistsAndHydrates(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(t, storage)

	s := m.Open(ctx, "sid-1")
	s.SetToken(ctx, "tok")
	s.SetUser(ctx, &domain.Profile{FullName: "Lan", Email: "lan@example.com", Role: domain.RoleAdmin})

	rec, ok := storage.Raw("sid-1")
	require.True(t, ok)
	assert.NotEqual(t, "tok", rec.Token, "token must be sealed at rest")
	assert.Contains(t, string(rec.User), `"role":"Admin"`)

	// A fresh manager simulates a process restart.
	restarted := newTestManager(t, storage)
	h := restarted.Open(ctx, "sid-1")
	assert.True(t, h.IsAuthenticated())
	assert.Equal(t, "tok", h.Token())
	require.NotNil(t, h.User())
	assert.Equal(t, domain.RoleAdmin, h.Role())
	assert.Equal(t, "Bearer tok", h.Gateway().Bearer())
}

func TestSession_LogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(t, storage)
	s := m.Open(ctx, "sid-1")
	s.SetToken(ctx, "tok")
	s.SetUser(ctx, &domain.Profile{FullName: "A"})

	s.Logout(ctx)
	first := s.Snapshot()
	s.Logout(ctx)

	assert.Equal(t, first, s.Snapshot())
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.Empty(t, s.Gateway().Bearer())
	_, ok := storage.Raw("sid-1")
	assert.False(t, ok, "logout must clear both durable keys")
}

func TestManager_CorruptProfileIsAbsent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(t, storage)
	sealed, err := m.sealer.sealGrant(grant{Token: "tok", Scope: "s1"})
	require.NoError(t, err)
	require.NoError(t, storage.SaveToken(ctx, "sid-1", sealed))
	require.NoError(t, storage.SaveUser(ctx, "sid-1", []byte("{not json")))

	s := m.Open(ctx, "sid-1")
	assert.True(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.Equal(t, domain.RoleUser, s.Role())
}

func TestManager_UnreadableTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.SaveToken(ctx, "sid-1", "garbage"))

	s := newTestManager(t, storage).Open(ctx, "sid-1")
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Gateway().Bearer())
}

func TestManager_FailingStorageDegradesToSignedOut(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, failingStorage{})

	s := m.Open(ctx, "sid-1")
	assert.False(t, s.IsAuthenticated())

	s.SetToken(ctx, "tok")
	assert.True(t, s.IsAuthenticated(), "in-memory state changes even when storage fails")
	assert.Equal(t, "Bearer tok", s.Gateway().Bearer())

	assert.Error(t, m.Ping(ctx))
}

func TestManager_SharesLiveSessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, NewMemoryStorage())
	a := m.Open(ctx, "sid-1")
	a.SetToken(ctx, "tok")
	b := m.Open(ctx, "sid-1")
	assert.Same(t, a, b)
	assert.NotSame(t, a, m.Open(ctx, "sid-2"))
}

func TestManager_GuestsWithoutRecordStayOutOfLiveSet(t *testing.T) {
	ctx := context.Background()
	m := newBoundedManager(t, NewMemoryStorage(), 1)
	s := m.Open(ctx, "sid-1")
	s.SetToken(ctx, "tok")

	for _, sid := range []string{"guest-1", "guest-2", "guest-3"} {
		assert.False(t, m.Open(ctx, sid).IsAuthenticated())
	}
	assert.Same(t, s, m.Open(ctx, "sid-1"))
}

func TestManager_RetainedSessionSurvivesEviction(t *testing.T) {
	ctx := context.Background()
	m := newBoundedManager(t, NewMemoryStorage(), 1)
	s := m.Open(ctx, "sid-1")
	s.SetToken(ctx, "tok")
	release := s.Retain()
	done := s.Done()

	m.Open(ctx, "sid-2").SetToken(ctx, "other")
	m.Open(ctx, "sid-3").SetToken(ctx, "another")

	again := m.Open(ctx, "sid-1")
	require.Same(t, s, again)
	again.Logout(ctx)
	select {
	case <-done:
	default:
		t.Fatal("logout through a reopened session must end the retained one")
	}
	assert.Empty(t, s.Gateway().Bearer())

	release()
	release()
	m.Open(ctx, "sid-2").SetToken(ctx, "again")
	assert.NotSame(t, s, m.Open(ctx, "sid-1"), "a released session is evictable")
}

func TestManager_RehydrationRestoresScopeOfLatestSignIn(t *testing.T) {
	ctx := context.Background()
	m := newBoundedManager(t, NewMemoryStorage(), 1)
	s := m.Open(ctx, "shared")
	s.SetToken(ctx, "first-user")
	firstScope := s.Scope()
	s.Logout(ctx)
	s.SetToken(ctx, "second-user")
	secondScope := s.Scope()
	require.NotEqual(t, firstScope, secondScope)

	m.Open(ctx, "sid-2").SetToken(ctx, "other")

	h := m.Open(ctx, "shared")
	require.NotSame(t, s, h)
	assert.Equal(t, "second-user", h.Token())
	assert.Equal(t, secondScope, h.Scope())

	h.SetToken(ctx, "second-user-refreshed")
	assert.Equal(t, secondScope, h.Scope(), "a token refresh keeps the scope")
}

func TestSession_DoneClosesOnLogout(t *testing.T) {
	ctx := context.Background()
	s := newTestManager(t, NewMemoryStorage()).Open(ctx, "sid-1")

	select {
	case <-s.Done():
	default:
		t.Fatal("signed-out session must report Done")
	}

	s.SetToken(ctx, "tok")
	done := s.Done()
	select {
	case <-done:
		t.Fatal("signed-in session must not be Done")
	default:
	}

	s.SetToken(ctx, "refreshed")
	select {
	case <-done:
		t.Fatal("token refresh must not end the signed-in period")
	default:
	}

	s.Logout(ctx)
	select {
	case <-done:
	default:
		t.Fatal("logout must close Done")
	}
}

func TestSession_ScopeChangesPerSignIn(t *testing.T) {
	ctx := context.Background()
	s := newTestManager(t, NewMemoryStorage()).Open(ctx, "sid-1")

	s.SetToken(ctx, "a")
	first := s.Scope()
	s.SetToken(ctx, "a2")
	assert.Equal(t, first, s.Scope())

	s.Logout(ctx)
	s.SetToken(ctx, "b")
	assert.NotEqual(t, first, s.Scope())
}

func TestDurableTokenReadsStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := newTestManager(t, storage)
	s := m.Open(ctx, "sid-1")
	src := s.Gateway().(*headerGateway).source

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	s.SetToken(ctx, "tok")
	tok, err = src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestSealer(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := a.Seal("token")
	require.NoError(t, err)
	plain, err := a.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", plain)

	_, err = b.Open(sealed)
	assert.Error(t, err)

	_, err = NewSealer("")
	assert.Error(t, err)
}
