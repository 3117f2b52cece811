package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/domain"
	"github.com/rdGxd/todo-list/internal/repository"
	apperrors "github.com/rdGxd/todo-list/pkg/errors"
	"github.com/rdGxd/todo-list/pkg/pagination"
)

// AccountService implements registration and account management.
type AccountService struct {
	accounts repository.AccountRepository
	hasher   auth.Hasher
	events   EventPublisher
	logger   *slog.Logger
	admins   map[string]struct{}
}

// NewAccountService creates a new account service.
func NewAccountService(
	accounts repository.AccountRepository,
	hasher auth.Hasher,
	events EventPublisher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		events:   events,
		logger:   logger,
	}
}

// WithAdminEmails returns a copy of s that gives the admin role to accounts
// registered with one of emails.
func (s *AccountService) WithAdminEmails(emails ...string) *AccountService {
	c := *s
	c.admins = make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = domain.NormalizeEmail(e); e != "" {
			c.admins[e] = struct{}{}
		}
	}
	return &c
}

func (s *AccountService) isAdminEmail(email string) bool {
	_, ok := s.admins[email]
	return ok
}

// PromoteAdmins adds the admin role to existing accounts whose email is in
// the admin list. Emails with no account yet are skipped; they are promoted
// when they register.
func (s *AccountService) PromoteAdmins(ctx context.Context) error {
	for email := range s.admins {
		account, err := s.accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return fmt.Errorf("find admin account: %w", err)
		}
		if account.HasRole(domain.RoleAdmin) {
			continue
		}

		roles := append(slices.Clone(account.Roles), domain.RoleAdmin)
		if err := s.accounts.UpdateRoles(ctx, account.ID, roles); err != nil {
			return fmt.Errorf("promote admin account: %w", err)
		}
		if err := s.events.PublishAccountRolesChanged(ctx, account.ID, roles, systemActor); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish account.roles_changed event",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.InfoContext(ctx, "account promoted to admin", slog.String("account_id", account.ID))
	}
	return nil
}

// systemActor is recorded as the author of role changes made at startup.
const systemActor = "system"

// RegisterInput holds the parameters for registering an account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates an account with the default role set.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	ctx, span := startSpan(ctx, "AccountService.Register")
	defer span.End()

	email := domain.NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        domain.DefaultRoles(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if s.isAdminEmail(email) {
		account.Roles = append(account.Roles, domain.RoleAdmin)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.events.PublishAccountRegistered(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.registered event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account registered", slog.String("account_id", account.ID))
	return account, nil
}

// Me returns the caller's own account.
func (s *AccountService) Me(ctx context.Context, caller *auth.Principal) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, caller.Subject)
}

// Get returns an account. Callers may read their own account; admins may
// read any.
func (s *AccountService) Get(ctx context.Context, caller *auth.Principal, id string) (*domain.Account, error) {
	if err := checkOwner(caller, id, true); err != nil {
		return nil, err
	}
	return s.accounts.FindByID(ctx, id)
}

// Update applies a self-service update to the caller's own account.
func (s *AccountService) Update(ctx context.Context, caller *auth.Principal, id string, update domain.AccountUpdate) (*domain.Account, error) {
	ctx, span := startSpan(ctx, "AccountService.Update")
	defer span.End()

	if err := checkOwner(caller, id, false); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		account.Name = name
	}
	if update.Email != nil {
		email := domain.NormalizeEmail(*update.Email)
		if email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		account.Email = email
	}
	if update.Password != nil {
		if *update.Password == "" {
			return nil, apperrors.InvalidInput("password must not be empty")
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.logger.InfoContext(ctx, "account updated", slog.String("account_id", account.ID))
	return account, nil
}

// Delete removes an account. Callers may delete their own account; admins
// may delete any.
func (s *AccountService) Delete(ctx context.Context, caller *auth.Principal, id string) error {
	if err := checkOwner(caller, id, true); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.events.PublishAccountDeleted(ctx, id, caller.Subject); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.deleted event",
			slog.String("account_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account deleted",
		slog.String("account_id", id),
		slog.String("deleted_by", caller.Subject),
	)
	return nil
}

// List returns one page of accounts.
func (s *AccountService) List(ctx context.Context, page pagination.Params) (pagination.Result[domain.Account], error) {
	accounts, total, err := s.accounts.List(ctx, page.PerPage, page.Offset())
	if err != nil {
		return pagination.Result[domain.Account]{}, fmt.Errorf("list accounts: %w", err)
	}
	return pagination.NewResult(accounts, total, page), nil
}

// SetRoles replaces an account's role set. The set must be non-empty and
// contain known roles only.
func (s *AccountService) SetRoles(ctx context.Context, caller *auth.Principal, id string, rawRoles []string) (*domain.Account, error) {
	ctx, span := startSpan(ctx, "AccountService.SetRoles")
	defer span.End()

	roles, err := domain.ParseRoles(rawRoles)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.accounts.UpdateRoles(ctx, id, roles); err != nil {
		return nil, fmt.Errorf("update roles: %w", err)
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishAccountRolesChanged(ctx, id, roles, caller.Subject); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.roles_changed event",
			slog.String("account_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account roles changed",
		slog.String("account_id", id),
		slog.Any("roles", domain.RoleStrings(roles)),
		slog.String("changed_by", caller.Subject),
	)
	return account, nil
}

func checkOwner(caller *auth.Principal, id string, adminAllowed bool) error {
	if caller == nil {
		return apperrors.Unauthenticated()
	}
	if caller.Subject == id || (adminAllowed && caller.IsAdmin()) {
		return nil
	}
	return apperrors.Forbidden("you can only access your own account")
}
