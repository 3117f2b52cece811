package domain

import (
	"slices"
	"strings"
	"time"
)

// Account is a registered user of the todo app.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DefaultRoles is the role set given to every new account.
func DefaultRoles() []Role {
	return []Role{RoleUser}
}

// HasRole reports whether the account holds r.
func (a *Account) HasRole(r Role) bool {
	return slices.Contains(a.Roles, r)
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountUpdate carries the optional fields of a self-service update. Nil
// fields are left unchanged.
type AccountUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// AuthTokens is the body returned by login and refresh.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64  `json:"expiresIn"`
	TokenType string `json:"tokenType"`
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"
