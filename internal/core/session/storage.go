package session

import (
	"context"
	"sync"
)

// Record is what durable storage holds for one visitor: the sealed access
// token and the JSON-encoded profile. Empty fields are absent keys.
type Record struct {
	Token string
	User  []byte
}

// Storage is the durable side of the session store. Each Save call writes or
// clears its key atomically; an empty value clears.
type Storage interface {
	Load(ctx context.Context, sid string) (Record, error)
	SaveToken(ctx context.Context, sid, sealedToken string) error
	SaveUser(ctx context.Context, sid string, user []byte) error
	Ping(ctx context.Context) error
}

// MemoryStorage keeps records in process memory. Used by tests and by
// SESSION_STORE=memory for local development.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]Record)}
}

func (m *MemoryStorage) Load(_ context.Context, sid string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[sid]
	return Record{Token: r.Token, User: append([]byte(nil), r.User...)}, nil
}

func (m *MemoryStorage) SaveToken(_ context.Context, sid, sealedToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[sid]
	r.Token = sealedToken
	m.put(sid, r)
	return nil
}

func (m *MemoryStorage) SaveUser(_ context.Context, sid string, user []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[sid]
	r.User = append([]byte(nil), user...)
	m.put(sid, r)
	return nil
}

func (m *MemoryStorage) put(sid string, r Record) {
	if r.Token == "" && len(r.User) == 0 {
		delete(m.records, sid)
		return
	}
	m.records[sid] = r
}

func (m *MemoryStorage) Ping(context.Context) error { return nil }

// Raw exposes a stored record as-is, for tests.
func (m *MemoryStorage) Raw(sid string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[sid]
	return r, ok
}
