package course

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Ref is a reference to a related record. The backend sends either a bare id string or a
// populated object, depending on the endpoint.
type Ref struct {
	ID       string `json:"_id"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Photo    string `json:"photo,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// Course is a catalogue entry as returned by the backend.
type Course struct {
	ID           string   `json:"_id"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	Active       bool     `json:"active"`
	Category     *Ref     `json:"category,omitempty"`
	Instructor   *Ref     `json:"instructor,omitempty"`
	LearningTags []string `json:"learningTags,omitempty"`
	// Modules, Testimonials and QuizSet are only populated on the full detail view and are
	// passed through as received.
	Modules      json.RawMessage `json:"modules,omitempty"`
	Testimonials json.RawMessage `json:"testimonials,omitempty"`
	QuizSet      json.RawMessage `json:"quizSet,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// Input is the body of a create or update request. Empty optional fields are left out.
// The validate tags are read by the validation package.
type Input struct {
	Title        string   `json:"title" validate:"notblank,min=3,max=200"`
	Subtitle     string   `json:"subtitle,omitempty" validate:"max=300"`
	Thumbnail    string   `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Description  string   `json:"description,omitempty" validate:"max=5000"`
	Price        float64  `json:"price" validate:"gte=0"`
	Active       bool     `json:"active"`
	Category     string   `json:"category,omitempty"`
	Instructor   string   `json:"instructor,omitempty"`
	LearningTags []string `json:"learningTags"`
	// Modules holds module ids; ids of modules not yet saved ("temp-" prefix) are dropped
	// by Prepare.
	Modules []string `json:"modules"`
}

// Prepare returns in with nil slices replaced by empty ones, blank tags removed and
// unsaved module ids dropped.
func (in Input) Prepare() Input {
	tags := make([]string, 0, len(in.LearningTags))
	for _, t := range in.LearningTags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	mods := make([]string, 0, len(in.Modules))
	for _, m := range in.Modules {
		if m != "" && !strings.HasPrefix(m, "temp-") {
			mods = append(mods, m)
		}
	}
	in.LearningTags = tags
	in.Modules = mods
	return in
}

// Category is a course category.
type Category struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// Pagination is the backend's pagination block. Pages is ceil(Total / Limit).
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page is one backend listing response.
type Page struct {
	Courses    []Course   `json:"courses"`
	Pagination Pagination `json:"pagination"`
}

// Listing is the result of Pipeline.List.
type Listing struct {
	Courses    []Course   `json:"courses"`
	Pagination Pagination `json:"pagination"`
	// Shown is len(Courses).
	Shown int `json:"shown"`
	// Filtered is true when the local price filter removed courses from the backend page, in
	// which case Pagination.Total overstates what the filter matches.
	Filtered bool `json:"filtered"`
	// Degraded is true when the backend could not be reached and the listing is empty.
	Degraded bool `json:"degraded,omitempty"`
}

// EmptyListing is the listing returned when the backend fails.
func EmptyListing(limit int) Listing {
	return Listing{
		Courses:    []Course{},
		Pagination: Pagination{Page: 1, Limit: limit, Total: 0, Pages: 0},
		Degraded:   true,
	}
}

// Stats is the enrollment summary of a course.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Batch is a scheduled cohort of a course.
type Batch struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	StartDate       string `json:"startDate,omitempty"`
	EndDate         string `json:"endDate,omitempty"`
	MaxStudents     int    `json:"maxStudents"`
	CurrentStudents int    `json:"currentStudents"`
	// Status is one of upcoming, ongoing, completed or cancelled.
	Status   string `json:"status"`
	Schedule string `json:"schedule,omitempty"`
}

// Enrollment is a student's enrollment in a course.
type Enrollment struct {
	ID         string  `json:"_id"`
	Student    *Ref    `json:"student,omitempty"`
	EnrolledAt string  `json:"enrolledAt,omitempty"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
}

// Detail is the admin view of a course: the fully populated course with its statistics,
// batches and most recent enrollments. Missing parts are left zero.
type Detail struct {
	Course      Course       `json:"course"`
	Stats       Stats        `json:"stats"`
	Batches     []Batch      `json:"batches"`
	Enrollments []Enrollment `json:"enrollments"`
}
