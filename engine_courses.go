package coursegate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/gate"
	"github.com/coursemaster/coursegate/validation"
)

// Messages shown when an admin course operation fails without a backend message.
const (
	FetchCoursesFailedMessage = "Failed to fetch courses"
	DeleteCourseFailedMessage = "Failed to delete course"
	SaveCourseFailedMessage   = "Something went wrong"
)

// recentEnrollments is the number of enrollments shown on the admin course detail.
const recentEnrollments = 5

// CourseView is the public page of one course.
type CourseView struct {
	Course course.Course `json:"course"`
	Stats  course.Stats  `json:"stats"`
}

// ListCourses returns one page of the public catalogue. Backend failures degrade to an empty
// listing.
func (e *Engine) ListCourses(ctx context.Context, q course.Query) course.Listing {
	listing := e.pipeline.List(ctx, q)
	if !listing.Degraded {
		e.metricInc(MetricListingServed)
	}
	return listing
}

// Categories returns the active categories for the filter sidebar.
func (e *Engine) Categories(ctx context.Context) []course.Category {
	return e.pipeline.Categories(ctx)
}

// FeaturedCourses returns the first active courses for the home page.
func (e *Engine) FeaturedCourses(ctx context.Context) []course.Course {
	active := true
	listing := e.ListCourses(ctx, course.Query{Page: 1, Limit: e.config.Listing.FeaturedLimit, Active: &active})
	return listing.Courses
}

// CoursePage fetches a course and its enrollment statistics concurrently. Any failure to read
// the course is reported as ErrCourseNotFound; missing statistics are zero.
func (e *Engine) CoursePage(ctx context.Context, id string) (CourseView, error) {
	var (
		wg    sync.WaitGroup
		stats course.Stats
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = e.timed(func() error {
			s, err := e.client.CourseStats(ctx, id)
			if err == nil {
				stats = s
			}
			return err
		})
	}()

	var c course.Course
	err := e.timed(func() error {
		var err error
		c, err = e.client.Course(ctx, id, false)
		return err
	})
	wg.Wait()

	if err != nil {
		return CourseView{}, fmt.Errorf("%w: %w", ErrCourseNotFound, err)
	}
	return CourseView{Course: c, Stats: stats}, nil
}

// timed runs fn and records its duration as backend latency.
func (e *Engine) timed(fn func() error) error {
	start := time.Now()
	err := fn()
	if e.metrics != nil {
		e.metrics.Observe(MetricBackendLatency, time.Since(start))
	}
	return err
}

// adminBearer returns the primary token when the profile holds a valid admin credential.
func (e *Engine) adminBearer(ctx context.Context) (string, error) {
	res, err := e.CheckRoute(ctx, e.gate.Config().AdminHome, 0)
	if err != nil {
		return "", err
	}
	if res.Decision != gate.Allow {
		return "", ErrAdminRequired
	}
	primary, err := e.primary(ctx)
	if err != nil {
		return "", err
	}
	return primary.Token, nil
}

// AdminCourses lists courses for the admin table. Unlike ListCourses, backend failures are
// returned.
func (e *Engine) AdminCourses(ctx context.Context, q course.Query) (course.Listing, error) {
	if _, err := e.adminBearer(ctx); err != nil {
		return course.Listing{}, err
	}
	q = q.Normalize(e.pipeline.Limits())

	var page course.Page
	err := e.timed(func() error {
		var err error
		page, err = e.client.ListCourses(ctx, q.ServerValues())
		return err
	})
	if err != nil {
		return course.Listing{}, err
	}
	return course.Listing{
		Courses:    page.Courses,
		Pagination: page.Pagination,
		Shown:      len(page.Courses),
	}, nil
}

// CourseDetail returns the fully populated course with its statistics, batches and most
// recent enrollments. Only a failure to read the course itself is an error.
func (e *Engine) CourseDetail(ctx context.Context, id string) (course.Detail, error) {
	if _, err := e.adminBearer(ctx); err != nil {
		return course.Detail{}, err
	}

	var (
		wg     sync.WaitGroup
		detail course.Detail
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		if s, err := e.client.CourseStats(ctx, id); err == nil {
			detail.Stats = s
		}
	}()
	go func() {
		defer wg.Done()
		if b, err := e.client.CourseBatches(ctx, id); err == nil {
			detail.Batches = b
		}
	}()
	go func() {
		defer wg.Done()
		if en, err := e.client.CourseEnrollments(ctx, id, recentEnrollments); err == nil {
			detail.Enrollments = en
		}
	}()

	c, err := e.client.Course(ctx, id, true)
	wg.Wait()
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			return course.Detail{}, fmt.Errorf("%w: %w", ErrCourseNotFound, err)
		}
		return course.Detail{}, err
	}
	detail.Course = c
	if detail.Batches == nil {
		detail.Batches = []course.Batch{}
	}
	if detail.Enrollments == nil {
		detail.Enrollments = []course.Enrollment{}
	}
	return detail, nil
}

// CreateCourse validates in and creates the course.
func (e *Engine) CreateCourse(ctx context.Context, in course.Input) (course.Course, error) {
	c, err := e.saveCourse(ctx, "", in)
	e.courseAudit(ctx, AuditCourseCreate, c.ID, err)
	if err == nil {
		e.metricInc(MetricCourseCreated)
	}
	return c, err
}

// UpdateCourse validates in and replaces course id.
func (e *Engine) UpdateCourse(ctx context.Context, id string, in course.Input) (course.Course, error) {
	if id == "" {
		return course.Course{}, ErrCourseNotFound
	}
	c, err := e.saveCourse(ctx, id, in)
	e.courseAudit(ctx, AuditCourseUpdate, id, err)
	if err == nil {
		e.metricInc(MetricCourseUpdated)
	}
	return c, err
}

func (e *Engine) saveCourse(ctx context.Context, id string, in course.Input) (course.Course, error) {
	in = in.Prepare()
	if err := validation.CheckCourse(in); err != nil {
		e.metricInc(MetricValidationRejected)
		return course.Course{}, err
	}
	bearer, err := e.adminBearer(ctx)
	if err != nil {
		return course.Course{}, err
	}

	var c course.Course
	if id == "" {
		c, err = e.client.CreateCourse(ctx, bearer, in)
	} else {
		c, err = e.client.UpdateCourse(ctx, bearer, id, in)
	}
	if err != nil {
		if id != "" && api.IsStatus(err, http.StatusNotFound) {
			return course.Course{}, fmt.Errorf("%w: %w", ErrCourseNotFound, err)
		}
		return course.Course{}, err
	}
	return c, nil
}

// DeleteCourse deletes course id.
func (e *Engine) DeleteCourse(ctx context.Context, id string) error {
	err := e.deleteCourse(ctx, id)
	e.courseAudit(ctx, AuditCourseDelete, id, err)
	if err == nil {
		e.metricInc(MetricCourseDeleted)
	}
	return err
}

func (e *Engine) deleteCourse(ctx context.Context, id string) error {
	if id == "" {
		return ErrCourseNotFound
	}
	bearer, err := e.adminBearer(ctx)
	if err != nil {
		return err
	}
	if err := e.client.DeleteCourse(ctx, bearer, id); err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %w", ErrCourseNotFound, err)
		}
		return err
	}
	return nil
}

func (e *Engine) courseAudit(ctx context.Context, event, courseID string, err error) {
	rec := auditRecord{eventType: event, success: err == nil, err: err}
	if user, uerr := e.CurrentUser(ctx); uerr == nil && user != nil {
		rec.userID = user.Identifier()
	}
	if courseID != "" {
		rec.metadata = func() map[string]string { return map[string]string{"course_id": courseID} }
	}
	e.emitAudit(ctx, rec)
}
