package auth

import (
	"context"
	"slices"
	"time"

	"github.com/rdGxd/todo-list/internal/domain"
)

// Principal is the authenticated caller of one request: the stored account's
// identity and roles combined with the token's timing claims.
type Principal struct {
	Subject   string
	Email     string
	Roles     []domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	Audience  []string
	Issuer    string
}

func newPrincipal(account *domain.Account, claims *Claims) *Principal {
	return &Principal{
		Subject:   account.ID,
		Email:     account.Email,
		Roles:     slices.Clone(account.Roles),
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
		Audience:  claims.Audience,
		Issuer:    claims.Issuer,
	}
}

// HasAnyRole reports whether p holds at least one of roles.
func (p *Principal) HasAnyRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether p holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.HasAnyRole(domain.RoleAdmin)
}

type principalKey struct{}

// ContextWithPrincipal returns a copy of ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the gate.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
