// Package middleware provides HTTP middleware for the sales analytics API.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

// TenantIDKey is the context key for the tenant ID.
const TenantIDKey contextKey = "tenant_id"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled       bool
	Tokens        []string
	DefaultTenant string
}

// Auth resolves the tenant of every request. With auth disabled the tenant
// comes from X-Tenant-ID, the tenant_id query parameter or DefaultTenant.
// With auth enabled a bearer token from Tokens is also required.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	defaultTenant := cfg.DefaultTenant
	if defaultTenant == "" {
		defaultTenant = "dev"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Enabled {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					writeError(w, http.StatusUnauthorized, "missing authorization header")
					return
				}

				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
					writeError(w, http.StatusUnauthorized, "invalid authorization header format")
					return
				}
				if !validToken(parts[1], cfg.Tokens) {
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
			}

			tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
			if tenantID == "" {
				tenantID = r.URL.Query().Get("tenant_id")
			}
			if tenantID == "" {
				tenantID = defaultTenant
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validToken(token string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && subtle.ConstantTimeCompare([]byte(token), []byte(t)) == 1 {
			return true
		}
	}
	return false
}

// TenantFromContext extracts the tenant ID from context.
func TenantFromContext(ctx context.Context) string {
	if v := ctx.Value(TenantIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}
