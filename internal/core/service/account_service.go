package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
)

// AccountService is the admin console's account management.
type AccountService struct {
	cache  *querycache.Cache
	logger zerolog.Logger
}

func NewAccountService(cache *querycache.Cache, logger zerolog.Logger) *AccountService {
	return &AccountService{cache: cache, logger: logger}
}

func (s *AccountService) List(ctx context.Context, sess *session.Session) ([]domain.Account, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	key := querycache.NewKey(querycache.ResUsers)
	return querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), sess.Gateway().ListUsers)
}

// Get finds one account in the cached listing; the backend has no single
// user read.
func (s *AccountService) Get(ctx context.Context, sess *session.Session, id int) (*domain.Account, error) {
	accounts, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *AccountService) Create(ctx context.Context, sess *session.Session, form forms.AccountCreate) (*domain.Account, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	var created *domain.Account
	err := s.cache.Mutate(ctx, querycache.Mutation{Kind: querycache.AccountCreate}, func(ctx context.Context) error {
		var err error
		created, err = sess.Gateway().CreateUser(ctx, ports.AccountInput{
			FullName: form.FullName,
			Email:    form.Email,
			Phone:    form.Phone,
			Password: form.Password,
			Role:     domain.ParseRole(form.Role).String(),
		})
		return err
	})
	return created, err
}

func (s *AccountService) Update(ctx context.Context, sess *session.Session, id int, form forms.AccountUpdate) (*domain.Account, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	return s.update(ctx, sess, querycache.AccountUpdate, id, ports.AccountInput{
		FullName: form.FullName,
		Email:    form.Email,
		Phone:    form.Phone,
		Address:  form.Address,
	})
}

// ToggleStatus flips an account between enabled and disabled.
func (s *AccountService) ToggleStatus(ctx context.Context, sess *session.Session, id int) (*domain.Account, error) {
	current, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	next := current.Status.Toggle()
	return s.update(ctx, sess, querycache.AccountStatus, id, ports.AccountInput{Status: &next})
}

func (s *AccountService) ChangeRole(ctx context.Context, sess *session.Session, id int, form forms.RoleChange) (*domain.Account, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	return s.update(ctx, sess, querycache.AccountRole, id, ports.AccountInput{Role: domain.ParseRole(form.Role).String()})
}

func (s *AccountService) Delete(ctx context.Context, sess *session.Session, id int) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	return s.cache.Mutate(ctx, s.mutation(querycache.AccountDelete, id), func(ctx context.Context) error {
		return sess.Gateway().DeleteUser(ctx, id)
	})
}

func (s *AccountService) update(ctx context.Context, sess *session.Session, kind querycache.MutationKind, id int, in ports.AccountInput) (*domain.Account, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	var updated *domain.Account
	err := s.cache.Mutate(ctx, s.mutation(kind, id), func(ctx context.Context) error {
		var err error
		updated, err = sess.Gateway().UpdateUser(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("account_id", id).Str("change", string(kind)).Msg("account updated")
	return updated, nil
}

func (s *AccountService) mutation(kind querycache.MutationKind, id int) querycache.Mutation {
	return querycache.Mutation{Kind: kind, Args: querycache.Args{ID: strconv.Itoa(id)}}
}
