package coursegate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPasskey = "open-sesame"

// fakeBackend is an in-memory stand-in for the REST backend.
type fakeBackend struct {
	mu      sync.Mutex
	courses map[string]map[string]any

	// passkeyToken is returned on a successful passkey; empty makes the client encode its own.
	passkeyToken string
	failListing  atomic.Bool
	listCalls    atomic.Int64
	lastBearer   atomic.Value
	nextID       int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{courses: map[string]map[string]any{
		"c-1": {"_id": "c-1", "title": "Go Basics", "price": 20.0, "active": true},
		"c-2": {"_id": "c-2", "title": "Advanced Go", "price": 80.0, "active": true},
		"c-3": {"_id": "c-3", "title": "Concurrency", "price": 50.0, "active": false},
	}}
}

func (f *fakeBackend) users() map[string]map[string]any {
	return map[string]map[string]any{
		"admin@example.com":   {"_id": "u-admin", "email": "admin@example.com", "role": "admin", "fullName": "Ada Admin"},
		"student@example.com": {"_id": "u-student", "email": "student@example.com", "role": "student", "fullName": "Sam Student"},
	}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		user, ok := f.users()[req.Email]
		if !ok || req.Password != "secret1" {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"token": "tok-" + user["_id"].(string), "user": user}})
	})

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, taken := f.users()[req["email"].(string)]; taken {
			writeTestJSON(w, http.StatusBadRequest, map[string]any{"message": "User already exists"})
			return
		}
		user := map[string]any{"_id": "u-new", "email": req["email"], "role": req["role"], "fullName": req["fullName"]}
		writeTestJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"token": "tok-new", "user": user}})
	})

	mux.HandleFunc("POST /api/admin/verify-passkey", func(w http.ResponseWriter, r *http.Request) {
		f.lastBearer.Store(r.Header.Get("Authorization"))
		var req struct{ Passkey, UserID string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.Header.Get("Authorization") != "Bearer tok-u-admin" || req.UserID != "u-admin" {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
		if req.Passkey != testPasskey {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid passkey"})
			return
		}
		body := map[string]any{"success": true}
		if f.passkeyToken != "" {
			body["token"] = f.passkeyToken
		}
		writeTestJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		if f.failListing.Load() {
			writeTestJSON(w, http.StatusInternalServerError, map[string]any{"message": "db down"})
			return
		}
		f.mu.Lock()
		list := make([]map[string]any, 0, len(f.courses))
		for _, id := range []string{"c-1", "c-2", "c-3", "c-4"} {
			c, ok := f.courses[id]
			if !ok {
				continue
			}
			if r.URL.Query().Get("active") == "true" && c["active"] != true {
				continue
			}
			list = append(list, c)
		}
		f.mu.Unlock()
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"courses":    list,
			"pagination": map[string]any{"page": 1, "limit": limit, "total": len(list), "pages": 1},
		}})
	})

	mux.HandleFunc("GET /api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		c, ok := f.courses[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			writeTestJSON(w, http.StatusNotFound, map[string]any{"message": "Course not found"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"course": c}})
	})

	mux.HandleFunc("GET /api/courses/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c-1" {
			writeTestJSON(w, http.StatusInternalServerError, map[string]any{"message": "no stats"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"enrollments": map[string]any{"total": 12, "active": 7}}})
	})

	mux.HandleFunc("GET /api/courses/{id}/batches", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"batches": []map[string]any{
			{"_id": "b-1", "name": "Autumn", "status": "upcoming", "maxStudents": 30},
		}}})
	})

	mux.HandleFunc("GET /api/courses/{id}/enrollments", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			writeTestJSON(w, http.StatusBadRequest, map[string]any{"message": "limit expected"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"enrollments": []map[string]any{
			{"_id": "e-1", "status": "active", "progress": 40},
		}}})
	})

	mux.HandleFunc("POST /api/courses", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authorized"})
			return
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.nextID++
		id := "n-" + strconv.Itoa(f.nextID)
		in["_id"] = id
		f.courses[id] = in
		f.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"course": in}})
	})

	mux.HandleFunc("PUT /api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authorized"})
			return
		}
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.courses[id]; !ok {
			writeTestJSON(w, http.StatusNotFound, map[string]any{"message": "Course not found"})
			return
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		in["_id"] = id
		f.courses[id] = in
		writeTestJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"course": in}})
	})

	mux.HandleFunc("DELETE /api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeTestJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authorized"})
			return
		}
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.courses[id]; !ok {
			writeTestJSON(w, http.StatusNotFound, map[string]any{"message": "Course not found"})
			return
		}
		delete(f.courses, id)
		writeTestJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
	})

	mux.HandleFunc("GET /api/categories/active", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"_id": "cat-1", "name": "Programming"},
		}})
	})

	return mux
}

func (f *fakeBackend) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer tok-u-admin"
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	engine  *Engine
	backend *fakeBackend
	redis   *miniredis.Miniredis
	sink    *captureSink
	clock   *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type captureSink struct {
	events chan AuditEvent
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// drain closes the engine and returns every emitted audit event.
func (env *testEnv) drain() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.sink.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Passkey.MaxAttempts = 3
	cfg.Metrics.EnableLatencyHistograms = true
	if mutate != nil {
		mutate(&cfg)
	}

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	sink := &captureSink{events: make(chan AuditEvent, 256)}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	return &testEnv{engine: engine, backend: backend, redis: mr, sink: sink, clock: clock}
}
