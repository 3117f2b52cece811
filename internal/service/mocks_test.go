package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/domain"
)

// --- Mock Account Repository ---

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) UpdateRoles(ctx context.Context, id string, roles []domain.Role) error {
	args := m.Called(ctx, id, roles)
	return args.Error(0)
}

func (m *mockAccountRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.Account), args.Int(1), args.Error(2)
}

// --- Mock Login Throttle ---

type mockThrottle struct {
	mock.Mock
}

func (m *mockThrottle) Allowed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockThrottle) RecordFailure(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockThrottle) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAccountRegistered(ctx context.Context, account *domain.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockPublisher) PublishAccountRolesChanged(ctx context.Context, accountID string, roles []domain.Role, changedBy string) error {
	return m.Called(ctx, accountID, roles, changedBy).Error(0)
}

func (m *mockPublisher) PublishAccountDeleted(ctx context.Context, accountID, deletedBy string) error {
	return m.Called(ctx, accountID, deletedBy).Error(0)
}

func (m *mockPublisher) PublishLoggedIn(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockPublisher) PublishTokensRefreshed(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

// countingHasher wraps a cheap bcrypt hasher and counts Compare calls.
type countingHasher struct {
	inner    auth.Hasher
	compares atomic.Int32
}

func newCountingHasher() *countingHasher {
	return &countingHasher{inner: auth.NewBcryptHasher(bcrypt.MinCost)}
}

func (h *countingHasher) Hash(plaintext string) (string, error) {
	return h.inner.Hash(plaintext)
}

func (h *countingHasher) Compare(plaintext, hashed string) bool {
	h.compares.Add(1)
	return h.inner.Compare(plaintext, hashed)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
