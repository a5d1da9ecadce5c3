// Package service holds the storefront's feature logic. Every operation takes
// the visitor's *session.Session explicitly and reads or writes backend state
// through the shared query cache.
package service

import (
	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/session"
)

// loginAction is offered with every "please sign in" notification.
var loginAction = &notify.Action{Label: "Đăng nhập", Href: "/login"}

func requireAuth(s *session.Session) error {
	if !s.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireAdmin(s *session.Session) error {
	if err := requireAuth(s); err != nil {
		return err
	}
	if s.Role() != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}
