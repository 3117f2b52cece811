package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rdGxd/todo-list/internal/domain"
	"github.com/rdGxd/todo-list/pkg/database"
	apperrors "github.com/rdGxd/todo-list/pkg/errors"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, name, password_hash, roles, created_at, updated_at`

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db     database.DBTX
	tracer database.QueryTracer
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(db database.DBTX, tracer database.QueryTracer) *AccountRepository {
	return &AccountRepository{db: db, tracer: tracer}
}

// Create inserts a new account into the database.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (err error) {
	query := `
		INSERT INTO accounts (id, email, name, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := r.tracer.Start(ctx, "accounts.Create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		a.ID,
		a.Email,
		a.Name,
		a.PasswordHash,
		domain.RoleStrings(a.Roles),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("account", "email", a.Email)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// FindByID retrieves an account by its ID. IDs that are not UUIDs cannot
// exist and are reported as not found without a round trip.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (a *domain.Account, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return nil, apperrors.NotFound("account", id)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	ctx, end := r.tracer.Start(ctx, "accounts.FindByID", query)
	defer func() { end(ignoreNotFound(err)) }()

	a, err = scanAccount(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("account", id)
	}
	return a, err
}

// FindByEmail retrieves an account by its email address.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (a *domain.Account, err error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	ctx, end := r.tracer.Start(ctx, "accounts.FindByEmail", query)
	defer func() { end(ignoreNotFound(err)) }()

	a, err = scanAccount(r.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return a, err
}

// Update saves the mutable profile fields of an account.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) (err error) {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE accounts
		SET email = $1, name = $2, password_hash = $3, updated_at = $4
		WHERE id = $5`

	ctx, end := r.tracer.Start(ctx, "accounts.Update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, a.Email, a.Name, a.PasswordHash, a.UpdatedAt, a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("account", "email", a.Email)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", a.ID)
	}
	return nil
}

// UpdateRoles replaces the role set of an account.
func (r *AccountRepository) UpdateRoles(ctx context.Context, id string, roles []domain.Role) (err error) {
	query := `UPDATE accounts SET roles = $1, updated_at = $2 WHERE id = $3`

	ctx, end := r.tracer.Start(ctx, "accounts.UpdateRoles", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, domain.RoleStrings(roles), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update account roles: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}
	return nil
}

// Delete removes an account from the database by its ID.
func (r *AccountRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM accounts WHERE id = $1`

	ctx, end := r.tracer.Start(ctx, "accounts.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}
	return nil
}

// List returns a page of accounts, oldest first, plus the total count.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) (accounts []domain.Account, total int, err error) {
	countQuery := `SELECT COUNT(*) FROM accounts`
	listQuery := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id LIMIT $1 OFFSET $2`

	ctx, end := r.tracer.Start(ctx, "accounts.List", listQuery)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	rows, err := r.db.Query(ctx, listQuery, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts = make([]domain.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, total, nil
}

// scanAccount reads one row selected with accountColumns. pgx.ErrNoRows is
// returned unwrapped.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a     domain.Account
		roles []string
	)
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&roles,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	a.Roles = make([]domain.Role, len(roles))
	for i, r := range roles {
		a.Roles[i] = domain.Role(r)
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), uniqueViolation)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
