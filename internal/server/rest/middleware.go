package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/server/auth"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns a copy of ctx carrying the authenticated caller.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller stored by Authenticate.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// Authenticate requires a valid access token in the Authorization header,
// given as "<scheme> <token>".
func (s *HTTPServer) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if fields := strings.Fields(r.Header.Get(common.AuthorizationHeaderName)); len(fields) > 1 {
			token = fields[1]
		}
		if token == "" {
			respondMessage(w, http.StatusUnauthorized, "Access Denied")
			return
		}

		identity, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			s.logger.Debug(r.Context(), "token rejected", "error", err)
			respondMessage(w, http.StatusBadRequest, "Invalid Token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireRoles admits callers whose role is one of roles. It must be
// mounted behind Authenticate; a request without an identity panics.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				panic("rest: RequireRoles used without Authenticate")
			}
			if !hasRole(identity.Role, roles) {
				respondMessage(w, http.StatusForbidden, "Access Denied: Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	switch role {
	case models.RoleUser, models.RoleAdmin:
		for _, a := range allowed {
			if a == role {
				return true
			}
		}
	}
	return false
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
