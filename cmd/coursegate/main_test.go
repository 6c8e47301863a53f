package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	admin := map[string]any{"_id": "u-admin", "email": "admin@example.com", "role": "admin", "fullName": "Ada Admin"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			writeBackendJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeBackendJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"token": "tok-admin", "user": admin}})
	})
	mux.HandleFunc("POST /api/admin/verify-passkey", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Passkey string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Passkey != "open-sesame" {
			writeBackendJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid passkey"})
			return
		}
		writeBackendJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"courses": []map[string]any{
				{"_id": "c-1", "title": "Go Basics", "price": 0.0, "active": true},
				{"_id": "c-2", "title": "Advanced Go", "price": 80.0, "active": true},
			},
			"pagination": map[string]any{"page": 1, "limit": 10, "total": 2, "pages": 1},
		}})
	})
	mux.HandleFunc("GET /api/categories/active", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"_id": "cat-1", "name": "Programming"}}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T) {
	t.Helper()
	backend := newBackend(t)
	t.Setenv("COURSEGATE_API_URL", backend.URL)
	t.Setenv("COURSEGATE_CREDENTIALS_DIR", t.TempDir())
	t.Setenv("COURSEGATE_LOG_LEVEL", "error")
	t.Setenv(PasswordEnv, "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "coursegate version "+Version+"\n", out)
}

func TestAdminSessionAcrossInvocations(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)

	out, err = run(t, "login", "--email", "admin@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Admin <admin@example.com> role=admin")
	assert.Contains(t, out, "dashboard: /admin")

	out, err = run(t, "check", "/admin")
	require.NoError(t, err)
	assert.Contains(t, out, "/admin redirect_challenge")

	_, err = run(t, "verify", "--passkey", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid passkey", err.Error())

	out, err = run(t, "verify", "--passkey", "open-sesame")
	require.NoError(t, err)
	assert.Equal(t, "admin access granted: /admin\n", out)

	out, err = run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin until:")

	out, err = run(t, "check", "/admin")
	require.NoError(t, err)
	assert.Equal(t, "/admin allow\n", out)

	// another profile sees none of it
	out, err = run(t, "--profile", "other", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)

	_, err = run(t, "logout")
	require.NoError(t, err)
	out, err = run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)
}

func TestLoginErrors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "login", "--email", "admin@example.com")
	assert.ErrorContains(t, err, "password required")

	_, err = run(t, "login", "--email", "admin@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	t.Setenv(PasswordEnv, "secret1")
	_, err = run(t, "login", "--email", "bad", "--password", "")
	assert.ErrorContains(t, err, "Please enter a valid email")
}

func TestCoursesAndCategories(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "courses", "--sort-by", "price-desc")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Advanced Go")
	assert.Contains(t, out, "free")
	assert.Contains(t, out, "page 1 of 1, 2 shown, 2 total")
	assert.Less(t, bytes.Index([]byte(out), []byte("c-2")), bytes.Index([]byte(out), []byte("c-1")))

	out, err = run(t, "categories")
	require.NoError(t, err)
	assert.Equal(t, "cat-1\tProgramming\n", out)
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "min-price", flagName("minPrice"))
	assert.Equal(t, "page", flagName("page"))
}
