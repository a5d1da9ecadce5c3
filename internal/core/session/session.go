// Package session is the storefront's session store: one Session per visitor
// holding the access token and the signed-in profile, mirrored to durable
// storage and to the visitor's backend gateway client.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/guard"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

// Session is one visitor's authentication state.
//
// Every mutator updates, in order, the durable record, the in-memory copy and
// the gateway's default Authorization header. A durable write failure is
// logged and the in-memory state still changes.
type Session struct {
	id      string
	storage Storage
	sealer  *Sealer
	gateway ports.Gateway
	manager *Manager
	log     zerolog.Logger

	mu    sync.RWMutex
	token string
	user  *domain.Profile
	// epoch is closed when the current signed-in period ends.
	epoch chan struct{}
	// scope is minted at sign-in, stored with the token and keys per-user
	// cache entries. Empty when signed out.
	scope string
}

func newScope() string { return uuid.NewString() }

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// ID returns the visitor id.
func (s *Session) ID() string { return s.id }

// Gateway returns the backend client bound to this session.
func (s *Session) Gateway() ports.Gateway { return s.gateway }

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the profile, or nil.
func (s *Session) User() *domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a token is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Role returns the signed-in role, RoleGuest when signed out.
func (s *Session) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return domain.RoleGuest
	}
	if s.user == nil {
		return domain.RoleUser
	}
	return s.user.Role
}

// Snapshot is the view route guards evaluate.
func (s *Session) Snapshot() guard.Snapshot {
	return guard.Snapshot{Authenticated: s.IsAuthenticated(), Role: s.Role()}
}

// Scope identifies this visitor's current sign-in for per-user cache keys.
// It changes on every sign-in and survives rehydration, so a new user never
// reads the previous one's cached cart or invoices.
func (s *Session) Scope() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scope == "" {
		return s.id + ".guest"
	}
	return s.id + "." + s.scope
}

// Retain keeps s as the only live Session for its id until release is
// called, however many other visitors come and go meanwhile. Subscribers
// that watch Done hold it for their whole lifetime.
func (s *Session) Retain() (release func()) {
	if s.manager == nil {
		return func() {}
	}
	return s.manager.retain(s)
}

// Done is closed when the current signed-in period ends. For a signed-out
// session it is already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// SetToken stores token; an empty token clears it.
func (s *Session) SetToken(ctx context.Context, token string) {
	if s.setToken(ctx, token) && s.manager != nil {
		s.manager.adopt(s)
	}
}

// setToken reports whether token started a new signed-in period.
func (s *Session) setToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := s.storage.SaveToken(ctx, s.id, ""); err != nil {
			s.log.Warn().Err(err).Str("sid", s.id).Msg("failed to clear stored token")
		}
		s.token = ""
		s.scope = ""
		s.gateway.ClearBearer()
		s.endEpoch()
		return false
	}

	signIn := s.token == ""
	scope := s.scope
	if signIn {
		scope = newScope()
	}
	sealed, err := s.sealer.sealGrant(grant{Token: token, Scope: scope})
	if err == nil {
		err = s.storage.SaveToken(ctx, s.id, sealed)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("sid", s.id).Msg("failed to persist token")
	}
	if signIn {
		s.epoch = make(chan struct{})
	}
	s.scope = scope
	s.token = token
	s.gateway.SetBearer(token)
	return signIn
}

// SetUser stores the profile; nil clears it.
func (s *Session) SetUser(ctx context.Context, user *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []byte
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			s.log.Warn().Err(err).Str("sid", s.id).Msg("failed to encode profile")
		}
		raw = b
	}
	if err := s.storage.SaveUser(ctx, s.id, raw); err != nil {
		s.log.Warn().Err(err).Str("sid", s.id).Msg("failed to persist profile")
	}

	if user == nil {
		s.user = nil
		return
	}
	u := *user
	s.user = &u
}

// Logout clears token and profile. Calling it on a signed-out session is a
// no-op apart from re-clearing storage.
func (s *Session) Logout(ctx context.Context) {
	wasAuthenticated := s.IsAuthenticated()
	s.SetToken(ctx, "")
	s.SetUser(ctx, nil)
	if wasAuthenticated {
		metrics.SessionEventsTotal.WithLabelValues("logout").Inc()
		s.log.Info().Str("sid", s.id).Msg("session logged out")
	}
}

// endEpoch must be called with mu held.
func (s *Session) endEpoch() {
	select {
	case <-s.epoch:
	default:
		close(s.epoch)
	}
}

// durableToken reads the token straight from durable storage on every call;
// it is the gateway's request-time token source.
type durableToken struct {
	sid     string
	storage Storage
	sealer  *Sealer
}

func (d durableToken) Token(ctx context.Context) (string, error) {
	rec, err := d.storage.Load(ctx, d.sid)
	if err != nil {
		return "", err
	}
	if rec.Token == "" {
		return "", nil
	}
	g, err := d.sealer.openGrant(rec.Token)
	if err != nil {
		return "", err
	}
	return g.Token, nil
}
