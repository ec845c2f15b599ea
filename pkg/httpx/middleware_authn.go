package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/userdir/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims minted at login and checked on admin calls.
type SessionClaims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

// AuthnMiddleware validates the bearer token against the HS256 signing
// secret. When requireStaff is set, non-staff tokens are rejected with 403.
func AuthnMiddleware(secret []byte, requireStaff bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			var claims SessionClaims
			_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if requireStaff && !claims.Staff {
				WriteError(w, http.StatusForbidden, "forbidden", "staff access required")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyEmail, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyStaff, claims.Staff)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
