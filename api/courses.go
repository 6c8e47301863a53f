package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coursemaster/coursegate/course"
)

// ListCourses fetches one listing page. params are sent as given.
func (c *Client) ListCourses(ctx context.Context, params url.Values) (course.Page, error) {
	var out course.Page
	if err := c.do(ctx, call{method: http.MethodGet, path: "/courses", query: params}, &out); err != nil {
		return course.Page{}, err
	}
	if out.Courses == nil {
		out.Courses = []course.Course{}
	}
	return out, nil
}

type courseData struct {
	Course course.Course `json:"course"`
}

// Course fetches one course. full asks the backend to populate related records.
func (c *Client) Course(ctx context.Context, id string, full bool) (course.Course, error) {
	var q url.Values
	if full {
		q = url.Values{"populate": {"full"}}
	}
	var out courseData
	if err := c.do(ctx, call{method: http.MethodGet, path: coursePath(id), query: q}, &out); err != nil {
		return course.Course{}, err
	}
	return out.Course, nil
}

// CourseStats fetches the enrollment summary of a course.
func (c *Client) CourseStats(ctx context.Context, id string) (course.Stats, error) {
	var out struct {
		Enrollments course.Stats `json:"enrollments"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: coursePath(id) + "/stats"}, &out); err != nil {
		return course.Stats{}, err
	}
	return out.Enrollments, nil
}

// CourseBatches fetches the batches of a course.
func (c *Client) CourseBatches(ctx context.Context, id string) ([]course.Batch, error) {
	var out struct {
		Batches []course.Batch `json:"batches"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: coursePath(id) + "/batches"}, &out); err != nil {
		return nil, err
	}
	if out.Batches == nil {
		out.Batches = []course.Batch{}
	}
	return out.Batches, nil
}

// CourseEnrollments fetches up to limit enrollments of a course. limit <= 0 leaves the
// backend default.
func (c *Client) CourseEnrollments(ctx context.Context, id string, limit int) ([]course.Enrollment, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out struct {
		Enrollments []course.Enrollment `json:"enrollments"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: coursePath(id) + "/enrollments", query: q}, &out); err != nil {
		return nil, err
	}
	if out.Enrollments == nil {
		out.Enrollments = []course.Enrollment{}
	}
	return out.Enrollments, nil
}

// CreateCourse creates a course with the caller's bearer token.
func (c *Client) CreateCourse(ctx context.Context, bearer string, in course.Input) (course.Course, error) {
	var out courseData
	err := c.do(ctx, call{method: http.MethodPost, path: "/courses", bearer: bearer, body: in.Prepare()}, &out)
	return out.Course, err
}

// UpdateCourse replaces a course with the caller's bearer token.
func (c *Client) UpdateCourse(ctx context.Context, bearer, id string, in course.Input) (course.Course, error) {
	var out courseData
	err := c.do(ctx, call{method: http.MethodPut, path: coursePath(id), bearer: bearer, body: in.Prepare()}, &out)
	return out.Course, err
}

// DeleteCourse deletes a course with the caller's bearer token.
func (c *Client) DeleteCourse(ctx context.Context, bearer, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: coursePath(id), bearer: bearer}, nil)
}

// Categories fetches categories with ?active=true. The backend answers either
// {"categories": [...]} or a bare array.
func (c *Client) Categories(ctx context.Context) ([]course.Category, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodGet, path: "/categories", query: url.Values{"active": {"true"}}}, &raw); err != nil {
		return nil, err
	}
	return decodeCategories(raw)
}

// ActiveCategories fetches /categories/active.
func (c *Client) ActiveCategories(ctx context.Context) ([]course.Category, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodGet, path: "/categories/active"}, &raw); err != nil {
		return nil, err
	}
	return decodeCategories(raw)
}

func decodeCategories(raw json.RawMessage) ([]course.Category, error) {
	out := []course.Category{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return out, nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: decode categories: %w", ErrTransport, err)
		}
		return out, nil
	}
	var wrapped struct {
		Categories []course.Category `json:"categories"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: decode categories: %w", ErrTransport, err)
	}
	if wrapped.Categories != nil {
		out = wrapped.Categories
	}
	return out, nil
}

func coursePath(id string) string {
	return "/courses/" + url.PathEscape(id)
}
