package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rdGxd/todo-list/internal/domain"
	apperrors "github.com/rdGxd/todo-list/pkg/errors"
	"github.com/rdGxd/todo-list/pkg/httputil"
	"github.com/rdGxd/todo-list/pkg/logger"
	"github.com/rdGxd/todo-list/pkg/middleware"
)

// TokenVerifier verifies a raw token of the given kind.
type TokenVerifier interface {
	VerifyAs(token string, use TokenUse) (*Claims, error)
}

// AccountFinder loads an account by ID. A missing account is reported as
// an error matching apperrors.ErrNotFound.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// Gate authenticates requests from their bearer token and enforces the
// route policy table.
type Gate struct {
	tokens   TokenVerifier
	accounts AccountFinder
	policies *PolicyTable
	routeKey RouteKeyFunc
	logger   *slog.Logger
}

// NewGate creates a Gate keyed on chi route patterns.
func NewGate(tokens TokenVerifier, accounts AccountFinder, policies *PolicyTable, logger *slog.Logger) *Gate {
	if policies == nil {
		policies = NewPolicyTable()
	}
	return &Gate{
		tokens:   tokens,
		accounts: accounts,
		policies: policies,
		routeKey: ChiRouteKey,
		logger:   logger,
	}
}

// WithRouteKey returns a copy of g that matches requests against the policy
// table using fn.
func (g *Gate) WithRouteKey(fn RouteKeyFunc) *Gate {
	c := *g
	c.routeKey = fn
	return &c
}

// ResolvePrincipal verifies rawToken as an access token and loads the
// account it names. Every credential problem is Unauthenticated; only a
// storage failure is Internal.
func (g *Gate) ResolvePrincipal(ctx context.Context, rawToken string) (*Principal, error) {
	p, _, err := g.resolve(ctx, rawToken)
	return p, err
}

func (g *Gate) resolve(ctx context.Context, rawToken string) (*Principal, string, error) {
	if rawToken == "" {
		return nil, outcomeNoToken, apperrors.Unauthenticated()
	}

	claims, err := g.tokens.VerifyAs(rawToken, TokenUseAccess)
	if err != nil {
		return nil, outcomeInvalidToken, apperrors.Unauthenticated()
	}

	account, err := g.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, outcomeUnknownAccount, apperrors.Unauthenticated()
		}
		return nil, outcomeError, apperrors.Internal(fmt.Errorf("resolve principal: %w", err))
	}

	return newPrincipal(account, claims), outcomeAllowed, nil
}

// CheckPolicy decides whether p may use a route requiring one of required.
// An empty requirement is an open route.
func (g *Gate) CheckPolicy(required []domain.Role, p *Principal) error {
	_, err := checkPolicy(required, p)
	return err
}

func checkPolicy(required []domain.Role, p *Principal) (string, error) {
	if len(required) == 0 {
		return outcomeOpen, nil
	}
	if p == nil {
		return outcomeNoPrincipal, apperrors.Unauthenticated()
	}
	if p.HasAnyRole(required...) {
		return outcomeAllowed, nil
	}
	return outcomeForbidden, apperrors.Forbidden("requires one of roles: " + strings.Join(domain.RoleStrings(required), ", "))
}

// Authenticate requires a valid bearer token and attaches the Principal to
// the request context. Failed requests never reach next.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, _ := middleware.BearerToken(r)

		p, outcome, err := g.resolve(ctx, token)
		gateDecisions.WithLabelValues(stageAuthenticate, outcome).Inc()
		if err != nil {
			if outcome != outcomeError {
				logger.FromContext(ctx).InfoContext(ctx, "request not authenticated",
					slog.String("reason", outcome),
					slog.String("path", r.URL.Path),
				)
			}
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		ctx = ContextWithPrincipal(ctx, p)
		ctx = logger.WithUserID(ctx, p.Subject)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", p.Subject)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize enforces the policy declared for the matched route. Routes with
// no declared policy pass unconditionally.
func (g *Gate) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required, _ := g.policies.Lookup(g.routeKey(r))
		p, _ := PrincipalFromContext(r.Context())

		outcome, err := checkPolicy(required, p)
		gateDecisions.WithLabelValues(stageAuthorize, outcome).Inc()
		if err != nil {
			if outcome == outcomeForbidden {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "request forbidden",
					slog.String("route", g.routeKey(r)),
				)
			}
			httputil.WriteError(w, r, err, g.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Protect authenticates and then authorizes. When authentication fails the
// policy check never runs.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return g.Authenticate(g.Authorize(next))
}
