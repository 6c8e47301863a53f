package coursegate

import (
	"context"
	"errors"
	"io"

	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/internal/audit"
	"github.com/coursemaster/coursegate/validation"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// NewChannelSink returns a sink that buffers events in a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types.
const (
	AuditGateAllow     = "gate.allow"
	AuditGateDeny      = "gate.deny"
	AuditLogin         = "login"
	AuditRegister      = "register"
	AuditLogout        = "logout"
	AuditExitAdmin     = "admin.exit"
	AuditPasskeyVerify = "passkey.verify"
	AuditCourseCreate  = "course.create"
	AuditCourseUpdate  = "course.update"
	AuditCourseDelete  = "course.delete"
)

// AuditErrorCode is the coarse error class recorded in an audit event.
type AuditErrorCode string

const (
	auditErrValidation    AuditErrorCode = "validation"
	auditErrNotLoggedIn   AuditErrorCode = "not_logged_in"
	auditErrNotAdmin      AuditErrorCode = "not_admin"
	auditErrAdminRequired AuditErrorCode = "admin_required"
	auditErrRejected      AuditErrorCode = "rejected"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
	auditErrUnauthorized  AuditErrorCode = "unauthorized"
	auditErrNotFound      AuditErrorCode = "not_found"
	auditErrBackend       AuditErrorCode = "backend_error"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrStore         AuditErrorCode = "store_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	userID    string
	route     string
	reason    string
	err       error
	metadata  func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, r auditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if r.metadata != nil {
		metadata = r.metadata()
	}
	if id := requestIDFromContext(ctx); id != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = id
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: r.eventType,
		Profile:   ProfileFromContext(ctx),
		UserID:    r.userID,
		Route:     r.route,
		Success:   r.success,
		Reason:    r.reason,
		Metadata:  metadata,
	}
	if code := auditErrorCode(r.err); code != "" {
		event.Error = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	if _, ok := validation.AsErrors(err); ok {
		return auditErrValidation
	}
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		return auditErrNotLoggedIn
	case errors.Is(err, ErrNotAdmin):
		return auditErrNotAdmin
	case errors.Is(err, ErrAdminRequired):
		return auditErrAdminRequired
	case errors.Is(err, ErrPasskeyRejected):
		return auditErrRejected
	case errors.Is(err, ErrPasskeyRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrCourseNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrCredentialStore):
		return auditErrStore
	case errors.Is(err, ErrPasskeyUnavailable), errors.Is(err, api.ErrTransport):
		return auditErrUnavailable
	case api.IsStatus(err, 401), api.IsStatus(err, 403):
		return auditErrUnauthorized
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return auditErrBackend
	}
	return auditErrInternal
}
