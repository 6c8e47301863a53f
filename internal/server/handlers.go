package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coursemaster/coursegate"
	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/middleware"
	"github.com/coursemaster/coursegate/validation"
)

// Public catalogue

type listingResponse struct {
	course.Listing
	Markers []course.Marker `json:"markers"`
	HasPrev bool            `json:"hasPrev"`
	HasNext bool            `json:"hasNext"`
}

func newListingResponse(l course.Listing) listingResponse {
	return listingResponse{
		Listing: l,
		Markers: course.PageMarkers(l.Pagination.Page, l.Pagination.Pages),
		HasPrev: course.HasPrev(l.Pagination.Page),
		HasNext: course.HasNext(l.Pagination.Page, l.Pagination.Pages),
	}
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := course.ParseQuery(r.URL.Query())
	writeJSON(w, http.StatusOK, newListingResponse(s.engine.ListCourses(r.Context(), q)))
}

func (s *Server) handleFeaturedCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"courses": s.engine.FeaturedCourses(r.Context())})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.CoursePage(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		s.writeEngineError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.engine.Categories(r.Context())})
}

// Session

type sessionResponse struct {
	User      *credential.User `json:"user"`
	Dashboard string           `json:"dashboard"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.CurrentUser(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err, "")
		return
	}
	dashboard, err := s.engine.DashboardFor(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Dashboard: dashboard})
}

type authResponse struct {
	User     credential.User `json:"user"`
	Location string          `json:"location"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form validation.Login
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := s.engine.Login(r.Context(), form)
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.LoginFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: res.User, Location: res.Location})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form validation.Register
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := s.engine.Register(r.Context(), form)
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.RegistrationFailedMessage)
		return
	}
	w.Header().Set("Location", res.Location)
	writeJSON(w, http.StatusCreated, authResponse{User: res.User, Location: res.Location})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Logout(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": res.Location})
}

// Admin challenge

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.ResultFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": res.User})
}

func (s *Server) handleVerifyPasskey(w http.ResponseWriter, r *http.Request) {
	var form validation.Passkey
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := s.engine.VerifyPasskey(r.Context(), form)
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.DefaultPasskeyMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": res.Location})
}

func (s *Server) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	payload, err := s.engine.AdminSession(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"admin": payload})
}

func (s *Server) handleExitAdmin(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ExitAdmin(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": res.Location})
}

// Admin courses

func (s *Server) handleAdminListCourses(w http.ResponseWriter, r *http.Request) {
	listing, err := s.engine.AdminCourses(r.Context(), course.ParseQuery(r.URL.Query()))
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.FetchCoursesFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, newListingResponse(listing))
}

func (s *Server) handleCourseDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.CourseDetail(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.FetchCoursesFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var in course.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	created, err := s.engine.CreateCourse(r.Context(), in)
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.SaveCourseFailedMessage)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"course": created})
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var in course.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	updated, err := s.engine.UpdateCourse(r.Context(), chi.URLParam(r, "courseId"), in)
	if err != nil {
		s.writeEngineError(w, r, err, coursegate.SaveCourseFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"course": updated})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteCourse(r.Context(), chi.URLParam(r, "courseId")); err != nil {
		s.writeEngineError(w, r, err, coursegate.DeleteCourseFailedMessage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Member dashboards

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.ResultFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{User: res.User, Dashboard: r.URL.Path})
}
