package auth

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/rdGxd/todo-list/internal/domain"
)

// RouteKey identifies a route in a PolicyTable, e.g. "GET /users/{id}".
func RouteKey(method, pattern string) string {
	return method + " " + pattern
}

// RouteKeyFunc derives the policy key of a request.
type RouteKeyFunc func(r *http.Request) string

// ChiRouteKey keys a request by its method and the chi pattern matched so
// far. Gated routes must be registered directly on the top-level router
// (Group or With, not Route) so the pattern is complete when the gate runs.
func ChiRouteKey(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return RouteKey(r.Method, r.URL.Path)
	}
	return RouteKey(r.Method, rctx.RoutePattern())
}

// PolicyTable maps route keys to the roles allowed on them. It is filled at
// startup and only read afterwards.
type PolicyTable struct {
	routes map[string][]domain.Role
}

// NewPolicyTable returns an empty table. Every route is open until declared.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{routes: make(map[string][]domain.Role)}
}

// Require declares that method+pattern needs one of roles. Declaring an
// empty role set leaves the route open.
func (t *PolicyTable) Require(method, pattern string, roles ...domain.Role) *PolicyTable {
	if len(roles) == 0 {
		delete(t.routes, RouteKey(method, pattern))
		return t
	}
	t.routes[RouteKey(method, pattern)] = slices.Clone(roles)
	return t
}

// Lookup returns the roles required for key and whether a policy exists.
func (t *PolicyTable) Lookup(key string) ([]domain.Role, bool) {
	roles, ok := t.routes[key]
	return roles, ok
}

// Len returns the number of declared policies.
func (t *PolicyTable) Len() int {
	return len(t.routes)
}
