package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

const defaultMaxLive = 10000

// GatewayFactory builds the backend client for one visitor.
type GatewayFactory func(ports.TokenSource) ports.Gateway

// Manager hands out one live Session per visitor id, hydrating it from
// durable storage the first time it is seen.
//
// Live sessions sit in a bounded LRU. A retained session is also held in
// pinned and always wins over the LRU, so eviction never splits a visitor
// with a running subscriber into two Session values.
type Manager struct {
	storage    Storage
	sealer     *Sealer
	newGateway GatewayFactory
	log        zerolog.Logger

	mu     sync.Mutex
	live   *lru.Cache[string, *Session]
	pinned map[string]*pin
}

type pin struct {
	sess *Session
	refs int
}

func NewManager(storage Storage, sealer *Sealer, newGateway GatewayFactory, maxLive int, log zerolog.Logger) (*Manager, error) {
	if maxLive <= 0 {
		maxLive = defaultMaxLive
	}
	live, err := lru.New[string, *Session](maxLive)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Manager{
		storage:    storage,
		sealer:     sealer,
		newGateway: newGateway,
		log:        log,
		live:       live,
		pinned:     make(map[string]*pin),
	}, nil
}

// Open returns the session for sid. Hydration never fails: unreadable
// storage yields a signed-out session and a corrupt profile is dropped.
// A visitor with nothing stored gets a fresh Session that becomes live only
// once it signs in.
func (m *Manager) Open(ctx context.Context, sid string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pinned[sid]; ok {
		return p.sess
	}
	if s, ok := m.live.Get(sid); ok {
		return s
	}

	s := m.newSession(sid)
	rec, err := m.storage.Load(ctx, sid)
	if err != nil {
		metrics.SessionEventsTotal.WithLabelValues("hydrate_degraded").Inc()
		m.log.Warn().Err(err).Str("sid", sid).Msg("session storage unavailable, continuing signed out")
		return s
	}

	if rec.Token == "" && len(rec.User) == 0 {
		return s
	}

	if rec.Token != "" {
		g, err := m.sealer.openGrant(rec.Token)
		if err != nil {
			m.log.Warn().Err(err).Str("sid", sid).Msg("stored token unreadable, treating as absent")
		} else {
			s.token = g.Token
			s.scope = g.Scope
			if s.scope == "" {
				s.scope = newScope()
			}
			s.epoch = make(chan struct{})
			s.gateway.SetBearer(g.Token)
		}
	}
	if len(rec.User) > 0 {
		var p domain.Profile
		if err := json.Unmarshal(rec.User, &p); err != nil {
			metrics.SessionEventsTotal.WithLabelValues("corrupt_profile").Inc()
			m.log.Warn().Err(err).Str("sid", sid).Msg("stored profile corrupt, treating as absent")
		} else {
			s.user = &p
		}
	}

	metrics.SessionEventsTotal.WithLabelValues("hydrate").Inc()
	m.live.Add(sid, s)
	return s
}

// adopt makes s the live session for its id after it signs in, unless a
// different Session for the id is pinned.
func (m *Manager) adopt(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pinned[s.id]; ok && p.sess != s {
		m.log.Warn().Str("sid", s.id).Msg("sign-in on a superseded session object")
		return
	}
	m.live.Add(s.id, s)
}

func (m *Manager) retain(s *Session) func() {
	m.mu.Lock()
	p, ok := m.pinned[s.id]
	if !ok || p.sess != s {
		p = &pin{sess: s}
		m.pinned[s.id] = p
	}
	p.refs++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			p.refs--
			if p.refs > 0 || m.pinned[s.id] != p {
				return
			}
			delete(m.pinned, s.id)
			if s.IsAuthenticated() {
				m.live.Add(s.id, s)
			}
		})
	}
}

// Ping checks durable storage.
func (m *Manager) Ping(ctx context.Context) error {
	return m.storage.Ping(ctx)
}

func (m *Manager) newSession(sid string) *Session {
	return &Session{
		id:      sid,
		storage: m.storage,
		sealer:  m.sealer,
		gateway: m.newGateway(durableToken{sid: sid, storage: m.storage, sealer: m.sealer}),
		manager: m,
		log:     m.log,
		epoch:   closedChan(),
	}
}
