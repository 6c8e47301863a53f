package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL + "//")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAPIBase(t *testing.T) {
	tests := map[string]string{
		"":                          "http://localhost:5000/api",
		"https://api.example.com":   "https://api.example.com/api",
		"https://api.example.com//": "https://api.example.com/api",
		"https://x.io/api/":         "https://x.io/api",
	}
	for in, want := range tests {
		got, err := APIBase(in)
		if err != nil || got != want {
			t.Fatalf("APIBase(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := APIBase("not a url"); err == nil {
		t.Fatal("expected invalid url error")
	}
}

func TestLoginSuccessAndFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"_id": "u-1", "email": req.Email, "role": "admin"},
		}})
	}))

	res, err := c.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "tok-1" || res.User.Role != credential.RoleAdmin || res.User.Email != "a@b.co" {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = c.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "nope"})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Fatalf("expected 401 api error, got %v", err)
	}
	if Message(err, "Login failed") != "Invalid credentials" {
		t.Fatal("Message should surface the backend message")
	}
}

func TestVerifyPasskeyReadsBodyOnAnyStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "no token"})
			return
		}
		var req PasskeyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Passkey {
		case "right":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": "jwt.admin.token"})
		case "local":
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "message": "Invalid passkey", "token": "leak"})
		}
	}))
	ctx := context.Background()

	res, err := c.VerifyPasskey(ctx, "tok-1", PasskeyRequest{Passkey: "right", UserID: "u-1"})
	if err != nil || !res.Success || res.Token != "jwt.admin.token" {
		t.Fatalf("right passkey: %+v err=%v", res, err)
	}
	res, err = c.VerifyPasskey(ctx, "tok-1", PasskeyRequest{Passkey: "local"})
	if err != nil || !res.Success || res.Token != "" {
		t.Fatalf("local passkey: %+v err=%v", res, err)
	}
	res, err = c.VerifyPasskey(ctx, "tok-1", PasskeyRequest{Passkey: "wrong"})
	if err != nil || res.Success || res.Message != "Invalid passkey" || res.Token != "" {
		t.Fatalf("wrong passkey: %+v err=%v", res, err)
	}
	if _, err := c.VerifyPasskey(ctx, "", PasskeyRequest{Passkey: "right"}); !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 without bearer, got %v", err)
	}
}

func TestListCoursesSendsParamsAndDecodes(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"courses": []map[string]any{
				{"_id": "c1", "title": "Go", "price": 19.5, "active": true, "category": map[string]any{"_id": "k", "name": "Code"}},
			},
			"pagination": map[string]any{"page": 2, "limit": 10, "total": 11, "pages": 2},
		}})
	}))

	page, err := c.ListCourses(context.Background(), url.Values{"page": {"2"}, "search": {"go lang"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery.Get("search") != "go lang" || gotQuery.Get("page") != "2" {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if len(page.Courses) != 1 || page.Courses[0].Category.Name != "Code" || page.Pagination.Total != 11 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, _ := NewClient(srv.URL)
	srv.Close()

	if _, err := c.ListCourses(context.Background(), nil); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for closed server, got %v", err)
	}

	slow := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	fast := *slow
	WithTimeout(50 * time.Millisecond)(&fast)
	if _, err := fast.ActiveCategories(context.Background()); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected timeout to be a transport error, got %v", err)
	}

	garbage := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	}))
	if _, err := garbage.ListCourses(context.Background(), nil); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected decode failure to be a transport error, got %v", err)
	}
}

func TestCategoriesAcceptBothShapes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/categories":
			if r.URL.Query().Get("active") != "true" {
				t.Errorf("expected active=true, got %v", r.URL.Query())
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"_id": "1", "name": "Design"}}})
		case "/api/categories/active":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"categories": []map[string]any{{"_id": "2", "name": "Code"}}}})
		}
	}))

	cats, err := c.Categories(context.Background())
	if err != nil || len(cats) != 1 || cats[0].Name != "Design" {
		t.Fatalf("bare array: %+v err=%v", cats, err)
	}
	cats, err = c.ActiveCategories(context.Background())
	if err != nil || len(cats) != 1 || cats[0].Name != "Code" {
		t.Fatalf("wrapped: %+v err=%v", cats, err)
	}
}

func TestCourseManagement(t *testing.T) {
	var created map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/courses/c1":
			if r.URL.Query().Get("populate") != "full" {
				t.Errorf("expected populate=full")
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"course": map[string]any{"_id": "c1", "title": "Go", "modules": []any{map[string]any{"_id": "m1"}}}}})
		case r.URL.Path == "/api/courses/c1/stats":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"enrollments": map[string]any{"total": 12, "active": 7}}})
		case r.URL.Path == "/api/courses/c1/batches":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"batches": []map[string]any{{"_id": "b1", "name": "Spring", "status": "upcoming", "maxStudents": 30}}}})
		case r.URL.Path == "/api/courses/c1/enrollments":
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("expected limit=5")
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"enrollments": []map[string]any{{"_id": "e1", "status": "active", "progress": 40, "student": map[string]any{"_id": "s1", "fullName": "Sam"}}}}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/courses":
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authorized"})
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&created)
			writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"course": map[string]any{"_id": "c2", "title": created["title"]}}})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/courses/missing":
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Course not found"})
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	ctx := context.Background()

	full, err := c.Course(ctx, "c1", true)
	if err != nil || full.ID != "c1" || len(full.Modules) == 0 {
		t.Fatalf("course: %+v err=%v", full, err)
	}
	stats, err := c.CourseStats(ctx, "c1")
	if err != nil || stats != (course.Stats{Total: 12, Active: 7}) {
		t.Fatalf("stats: %+v err=%v", stats, err)
	}
	batches, err := c.CourseBatches(ctx, "c1")
	if err != nil || len(batches) != 1 || batches[0].MaxStudents != 30 {
		t.Fatalf("batches: %+v err=%v", batches, err)
	}
	enr, err := c.CourseEnrollments(ctx, "c1", 5)
	if err != nil || len(enr) != 1 || enr[0].Student.FullName != "Sam" {
		t.Fatalf("enrollments: %+v err=%v", enr, err)
	}

	in := course.Input{Title: "Rust", Price: 10, Modules: []string{"m1", "temp-3"}, LearningTags: []string{" a ", ""}}
	if _, err := c.CreateCourse(ctx, "", in); !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 without token, got %v", err)
	}
	out, err := c.CreateCourse(ctx, "tok", in)
	if err != nil || out.ID != "c2" || out.Title != "Rust" {
		t.Fatalf("create: %+v err=%v", out, err)
	}
	if mods, _ := created["modules"].([]any); len(mods) != 1 || mods[0] != "m1" {
		t.Fatalf("unsaved modules must be dropped, got %v", created["modules"])
	}
	if _, ok := created["subtitle"]; ok {
		t.Fatal("empty subtitle must be omitted")
	}

	if err := c.DeleteCourse(ctx, "tok", "missing"); !IsStatus(err, http.StatusNotFound) || Message(err, "") != "Course not found" {
		t.Fatalf("expected 404, got %v", err)
	}
}
