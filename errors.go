package coursegate

import "errors"

var (
	// ErrEngineNotReady is returned by methods of a zero or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNotLoggedIn is returned when an operation needs a primary credential and the profile
	// has none.
	ErrNotLoggedIn = errors.New("please login first")
	// ErrNotAdmin is returned when the signed-in user is not an administrator.
	ErrNotAdmin = errors.New("admin role required")
	// ErrAdminRequired is returned by admin course operations without a valid admin token.
	ErrAdminRequired = errors.New("admin verification required")
	// ErrPasskeyRejected matches every *PasskeyRejectedError.
	ErrPasskeyRejected = errors.New("passkey rejected")
	// ErrPasskeyRateLimited is returned after too many failed passkey attempts.
	ErrPasskeyRateLimited = errors.New("passkey attempts rate limited")
	// ErrPasskeyUnavailable is returned when the attempt counter cannot be read.
	ErrPasskeyUnavailable = errors.New("passkey throttle unavailable")
	// ErrCourseNotFound is returned when the backend has no course with the requested id.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCredentialStore wraps failures of the visitor's credential store.
	ErrCredentialStore = errors.New("credential store unavailable")
)

// DefaultPasskeyMessage is shown when the backend rejects a passkey without saying why.
const DefaultPasskeyMessage = "Verification failed"

// PasskeyRejectedError carries the backend's reason for refusing a passkey.
type PasskeyRejectedError struct {
	Message string
}

func (e *PasskeyRejectedError) Error() string {
	return "passkey rejected: " + e.Message
}

func (e *PasskeyRejectedError) Is(target error) bool {
	return target == ErrPasskeyRejected
}
