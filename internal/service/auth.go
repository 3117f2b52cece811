package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/domain"
	"github.com/rdGxd/todo-list/internal/repository"
	apperrors "github.com/rdGxd/todo-list/pkg/errors"
)

// AuthService verifies credentials and issues token pairs.
type AuthService struct {
	accounts  repository.AccountRepository
	hasher    auth.Hasher
	tokens    TokenIssuer
	throttle  repository.LoginThrottle
	events    EventPublisher
	logger    *slog.Logger
	dummyHash string
}

// NewAuthService creates an auth service. throttle may be nil to disable
// failed-login lockout.
func NewAuthService(
	accounts repository.AccountRepository,
	hasher auth.Hasher,
	tokens TokenIssuer,
	throttle repository.LoginThrottle,
	events EventPublisher,
	logger *slog.Logger,
) (*AuthService, error) {
	// Compared against for unknown emails so both failure paths do the same work.
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		throttle:  throttle,
		events:    events,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Login checks email and password and returns a fresh token pair. Unknown
// email and wrong password fail with the same InvalidCredentials error.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *domain.AuthTokens, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		loginAttempts.WithLabelValues(outcomeInvalidCredentials).Inc()
		return nil, apperrors.InvalidCredentials()
	}

	if !s.loginAllowed(ctx, email) {
		loginAttempts.WithLabelValues(outcomeThrottled).Inc()
		s.logger.WarnContext(ctx, "login throttled", slog.String("email", email))
		return nil, apperrors.TooManyRequests("too many failed login attempts, try again later")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			loginAttempts.WithLabelValues(outcomeError).Inc()
			return nil, fmt.Errorf("find account by email: %w", err)
		}
		s.hasher.Compare(password, s.dummyHash)
		return nil, s.loginFailed(ctx, email)
	}

	if !s.hasher.Compare(password, account.PasswordHash) {
		return nil, s.loginFailed(ctx, email)
	}

	tokens, err := s.issueTokens(account.ID)
	if err != nil {
		loginAttempts.WithLabelValues(outcomeError).Inc()
		return nil, err
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "failed to reset login throttle", slog.String("error", err.Error()))
		}
	}
	if err := s.events.PublishLoggedIn(ctx, account.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish auth.logged_in event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	loginAttempts.WithLabelValues(outcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "account logged in", slog.String("account_id", account.ID))
	return tokens, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The
// presented token stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *domain.AuthTokens, err error) {
	ctx, span := startSpan(ctx, "AuthService.Refresh")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	claims, err := s.tokens.VerifyAs(refreshToken, auth.TokenUseRefresh)
	if err != nil {
		refreshAttempts.WithLabelValues(outcomeUnauthorized).Inc()
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	account, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			refreshAttempts.WithLabelValues(outcomeUnauthorized).Inc()
			return nil, apperrors.Unauthorized("invalid or expired refresh token")
		}
		refreshAttempts.WithLabelValues(outcomeError).Inc()
		return nil, fmt.Errorf("find account by id: %w", err)
	}

	tokens, err := s.issueTokens(account.ID)
	if err != nil {
		refreshAttempts.WithLabelValues(outcomeError).Inc()
		return nil, err
	}

	if err := s.events.PublishTokensRefreshed(ctx, account.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish auth.tokens_refreshed event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	refreshAttempts.WithLabelValues(outcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("account_id", account.ID))
	return tokens, nil
}

// issueTokens signs the access and refresh tokens concurrently.
func (s *AuthService) issueTokens(subject string) (*domain.AuthTokens, error) {
	var (
		g               errgroup.Group
		access, refresh string
	)
	g.Go(func() (err error) {
		access, err = s.tokens.SignAccess(subject)
		return err
	})
	g.Go(func() (err error) {
		refresh, err = s.tokens.SignRefresh(subject)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &domain.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.Config().AccessTTL / time.Second),
		TokenType:    domain.TokenTypeBearer,
	}, nil
}

// loginAllowed consults the throttle. A throttle outage lets the attempt
// through.
func (s *AuthService) loginAllowed(ctx context.Context, email string) bool {
	if s.throttle == nil {
		return true
	}
	ok, err := s.throttle.Allowed(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "login throttle unavailable", slog.String("error", err.Error()))
		return true
	}
	return ok
}

func (s *AuthService) loginFailed(ctx context.Context, email string) error {
	loginAttempts.WithLabelValues(outcomeInvalidCredentials).Inc()
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "failed to record login failure", slog.String("error", err.Error()))
		}
	}
	s.logger.InfoContext(ctx, "login rejected", slog.String("email", email))
	return apperrors.InvalidCredentials()
}
