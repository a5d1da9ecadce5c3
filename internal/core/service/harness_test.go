package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/infrastructure/backend"
	"github.com/marketplace/storefront/internal/pkg/media"
	"github.com/marketplace/storefront/internal/testutil/fakebackend"
)

type harness struct {
	fb      *fakebackend.Backend
	cache   *querycache.Cache
	storage *session.MemoryStorage
	manager *session.Manager
	images  media.Resolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithLive(t, 64)
}

// newHarnessWithLive bounds the manager's live sessions at maxLive.
func newHarnessWithLive(t *testing.T, maxLive int) *harness {
	t.Helper()
	fb := fakebackend.New(t)
	cache, err := querycache.New(256, notify.ContextNotifier{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("querycache.New: %v", err)
	}
	sealer, err := session.NewSealer("test")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	storage := session.NewMemoryStorage()
	manager, err := session.NewManager(storage, sealer, func(ts ports.TokenSource) ports.Gateway {
		c, err := backend.New(fb.Client(), fb.URL(), ts, zerolog.Nop())
		if err != nil {
			t.Fatalf("backend.New: %v", err)
		}
		return c
	}, maxLive, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return &harness{fb: fb, cache: cache, storage: storage, manager: manager, images: media.NewResolver("demo")}
}

func (h *harness) guest(sid string) *session.Session {
	return h.manager.Open(context.Background(), sid)
}

// signIn opens sid and signs it in as acc without going through /login.
func (h *harness) signIn(sid string, acc domain.Account) *session.Session {
	ctx := context.Background()
	s := h.manager.Open(ctx, sid)
	s.SetToken(ctx, h.fb.Token(acc.ID))
	s.SetUser(ctx, &domain.Profile{ID: acc.ID, FullName: acc.FullName, Email: acc.Email, Role: acc.Role})
	return s
}

func (h *harness) customer(sid string) (*session.Session, domain.Account) {
	acc := h.fb.AddAccount("Nguyễn Văn A", sid+"@example.com", "secret1", domain.RoleUser)
	return h.signIn(sid, acc), acc
}

func (h *harness) admin(sid string) (*session.Session, domain.Account) {
	acc := h.fb.AddAccount("Quản trị", sid+"@example.com", "secret1", domain.RoleAdmin)
	return h.signIn(sid, acc), acc
}

func collect() (context.Context, *notify.Collector) {
	return notify.WithCollector(context.Background())
}

func lastNotification(t *testing.T, col *notify.Collector) notify.Notification {
	t.Helper()
	items := col.Drain()
	if len(items) == 0 {
		t.Fatalf("expected a notification")
	}
	return items[len(items)-1]
}
