package middleware

import (
	"net/http"
	"strings"
)

const bearerScheme = "Bearer"

// BearerToken extracts the token from an Authorization header of the exact
// form "Bearer <token>". Any other shape (missing header, other scheme, extra
// or missing parts, empty token) reports false.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != bearerScheme || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
