package repository

import (
	"context"

	"github.com/rdGxd/todo-list/internal/domain"
)

// AccountRepository defines persistence operations for accounts. Lookups of
// a missing account return an error matching apperrors.ErrNotFound.
type AccountRepository interface {
	// Create inserts a new account. A taken email is apperrors.ErrAlreadyExists.
	Create(ctx context.Context, account *domain.Account) error

	// FindByID retrieves an account by its identifier.
	FindByID(ctx context.Context, id string) (*domain.Account, error)

	// FindByEmail retrieves an account by its normalized email.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)

	// Update saves name, email and password hash.
	Update(ctx context.Context, account *domain.Account) error

	// UpdateRoles replaces the role set of an account.
	UpdateRoles(ctx context.Context, id string, roles []domain.Role) error

	// Delete removes an account.
	Delete(ctx context.Context, id string) error

	// List returns one page of accounts ordered by creation time, and the
	// total number of accounts.
	List(ctx context.Context, limit, offset int) ([]domain.Account, int, error)
}

// LoginThrottle counts failed logins per key and locks the key out once a
// threshold is reached within a window.
type LoginThrottle interface {
	// Allowed reports whether another attempt may be made for key.
	Allowed(ctx context.Context, key string) (bool, error)

	// RecordFailure counts one failed attempt for key.
	RecordFailure(ctx context.Context, key string) error

	// Reset clears the failure count for key.
	Reset(ctx context.Context, key string) error
}
