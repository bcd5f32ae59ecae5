package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pixeltask/backend/internal/models"
)

type contextKey string

const ctxPrincipalKey contextKey = "principal"

// Principal is the authenticated caller, carried explicitly in the request
// context instead of ambient session state. Every money-moving operation
// receives it from here.
type Principal struct {
	AccountID uuid.UUID
	Role      models.Role
}

// TokenValidator is the subset of the auth service the middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, models.Role, error)
}

// Authenticate validates the Bearer JWT and places a Principal into the
// request context. Missing or invalid tokens get 401.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			accountID, role, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxPrincipalKey, &Principal{AccountID: accountID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated principals whose role is not in the
// allowed set. Must run after Authenticate.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromCtx(r.Context())
			if p == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		})
	}
}

// PrincipalFromCtx returns the authenticated principal or nil.
func PrincipalFromCtx(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxPrincipalKey).(*Principal)
	return p
}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
