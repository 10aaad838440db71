package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

// PrincipalContextKey is the context key for the authenticated principal
const PrincipalContextKey contextKey = "principal"

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// Middleware enforces Basic authentication and the authenticator's access
// rules. Paths listed in public are served without credentials. Rejections
// are JSON bodies of the form {"error": "..."}.
func Middleware(authenticator Authenticator, realm string, public ...string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = "calseries"
	}
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := open[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok || username == "" {
				w.Header().Set("WWW-Authenticate", challenge)
				reject(w, http.StatusUnauthorized, "authentication required")
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), Credentials{Username: username, Password: password})
			if err != nil {
				w.Header().Set("WWW-Authenticate", challenge)
				reject(w, http.StatusUnauthorized, "invalid username or password")
				return
			}

			if err := authenticator.ValidateAccess(r.Context(), principal, r.Method, r.URL.Path); err != nil {
				if IsForbidden(err) {
					reject(w, http.StatusForbidden, err.Error())
					return
				}
				w.Header().Set("WWW-Authenticate", challenge)
				reject(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
