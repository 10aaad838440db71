package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyp0633/calseries/server/auth"
	"github.com/cyp0633/calseries/server/auth/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.AddUser(memory.User{Username: "alice", Password: "secret", Handle: "Alice"}))
	require.NoError(t, store.AddUser(memory.User{Username: "viewer", Password: "look", ReadOnly: true}))

	var seen *auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := auth.Middleware(store, "test", "/healthz")(next)

	tests := []struct {
		name       string
		method     string
		path       string
		user, pass string
		wantStatus int
		wantID     string
	}{
		{name: "public path", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusNoContent},
		{name: "missing credentials", method: http.MethodGet, path: "/series/s1", wantStatus: http.StatusUnauthorized},
		{name: "wrong password", method: http.MethodGet, path: "/series/s1", user: "alice", pass: "nope", wantStatus: http.StatusUnauthorized},
		{name: "unknown user", method: http.MethodGet, path: "/series/s1", user: "mallory", pass: "x", wantStatus: http.StatusUnauthorized},
		{name: "authenticated write", method: http.MethodPost, path: "/series", user: "alice", pass: "secret", wantStatus: http.StatusNoContent, wantID: "alice"},
		{name: "read-only read", method: http.MethodGet, path: "/series/s1", user: "viewer", pass: "look", wantStatus: http.StatusNoContent, wantID: "viewer"},
		{name: "read-only write", method: http.MethodDelete, path: "/series/s1", user: "viewer", pass: "look", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if rec.Code == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="test", charset="UTF-8"`, rec.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
			if tt.wantID != "" {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantID, seen.ID)
			}
		})
	}
}

func TestMiddlewarePrincipalHandle(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.AddUser(memory.User{Username: "alice", Password: "secret", Handle: "Alice"}))
	require.NoError(t, store.AddUser(memory.User{Username: "bob", Password: "pw"}))

	var handles []string
	handler := auth.Middleware(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handles = append(handles, auth.GetPrincipalFromContext(r.Context()).Handle)
	}))

	for _, u := range []struct{ name, pass string }{{"alice", "secret"}, {"bob", "pw"}} {
		req := httptest.NewRequest(http.MethodGet, "/events/e1", nil)
		req.SetBasicAuth(u.name, u.pass)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, []string{"Alice", "bob"}, handles, "handle defaults to the username")
}

func TestAllowsMethod(t *testing.T) {
	ro := &auth.Principal{ID: "v", ReadOnly: true}
	rw := &auth.Principal{ID: "a"}

	assert.True(t, auth.AllowsMethod(ro, http.MethodGet))
	assert.True(t, auth.AllowsMethod(ro, http.MethodHead))
	assert.False(t, auth.AllowsMethod(ro, http.MethodPost))
	assert.True(t, auth.AllowsMethod(rw, http.MethodDelete))
	assert.False(t, auth.AllowsMethod(nil, http.MethodGet))
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.AddUser(memory.User{Username: "alice", Password: "secret"}))
	handler := auth.Middleware(store, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"Bearer abc", "Basic !!notbase64", "Basic OnNlY3JldA=="} {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
	}
}
