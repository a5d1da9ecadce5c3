package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

// AuthService signs visitors in and out.
type AuthService struct {
	notifier notify.Notifier
	logger   zerolog.Logger
}

func NewAuthService(notifier notify.Notifier, logger zerolog.Logger) *AuthService {
	return &AuthService{notifier: notifier, logger: logger}
}

// Login authenticates against the backend. The session is only written once
// the backend has accepted the credentials.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, form forms.Login) (*domain.Profile, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	res, err := sess.Gateway().Login(ctx, ports.LoginInput{Email: form.Email, Password: form.Password})
	if err != nil {
		s.fail(ctx, "login", err, "Email hoặc mật khẩu không đúng")
		return nil, err
	}
	return s.establish(ctx, sess, res, "login", "Đăng nhập thành công")
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, sess *session.Session, form forms.Register) (*domain.Profile, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	res, err := sess.Gateway().Register(ctx, ports.RegisterInput{
		FullName: form.FullName,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		s.fail(ctx, "register", err, "Đăng ký thất bại")
		return nil, err
	}
	return s.establish(ctx, sess, res, "register", "Đăng ký thành công")
}

func (s *AuthService) Logout(ctx context.Context, sess *session.Session) {
	if sess.IsAuthenticated() {
		notify.Success(ctx, s.notifier, "Đã đăng xuất")
	}
	sess.Logout(ctx)
}

func (s *AuthService) establish(ctx context.Context, sess *session.Session, res *domain.AuthResult, event, msg string) (*domain.Profile, error) {
	sess.SetToken(ctx, res.Token)
	sess.SetUser(ctx, res.User)

	metrics.SessionEventsTotal.WithLabelValues(event).Inc()
	ev := s.logger.Info().Str("sid", sess.ID()).Str("event", event)
	if res.User != nil {
		ev = ev.Str("role", res.User.Role.String())
	}
	ev.Msg("session established")

	notify.Success(ctx, s.notifier, msg)
	return sess.User(), nil
}

func (s *AuthService) fail(ctx context.Context, event string, err error, fallback string) {
	metrics.SessionEventsTotal.WithLabelValues(event + "_failed").Inc()
	s.logger.Warn().Err(err).Str("event", event).Msg("authentication rejected")

	msg := fallback
	if m, ok := domain.BackendMessage(err); ok {
		msg = m
	}
	notify.Error(ctx, s.notifier, msg, nil)
}
