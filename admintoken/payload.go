package admintoken

import (
	"errors"
	"time"
)

// TypeAdminAccess is the only payload type accepted as an admin credential.
const TypeAdminAccess = "admin_access"

var (
	// ErrExpired is reported when exp is not after the evaluation time.
	ErrExpired = errors.New("admin token expired")
	// ErrUnverified is reported when the payload is not marked verified.
	ErrUnverified = errors.New("admin token not verified")
	// ErrWrongType is reported when the payload type is not TypeAdminAccess.
	ErrWrongType = errors.New("admin token has wrong type")
)

// Payload is the decoded body of an admin token.
type Payload struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
	// Exp is the expiry in Unix seconds.
	Exp  int64  `json:"exp"`
	Type string `json:"type"`
}

// NewPayload returns a verified admin_access payload for the given user expiring at exp.
func NewPayload(userID, email, role string, exp time.Time) Payload {
	return Payload{
		UserID:   userID,
		Email:    email,
		Role:     role,
		Verified: true,
		Exp:      exp.Unix(),
		Type:     TypeAdminAccess,
	}
}

// ExpiresAt returns Exp as a time.
func (p Payload) ExpiresAt() time.Time {
	return time.Unix(p.Exp, 0)
}

// Valid reports whether p grants admin access at now.
func (p Payload) Valid(now time.Time) bool {
	return p.Problem(now) == nil
}

// Problem returns why p does not grant admin access at now, or nil.
//
// Expiry is checked first, then the verified flag, then the type.
func (p Payload) Problem(now time.Time) error {
	if p.Exp <= now.Unix() {
		return ErrExpired
	}
	if !p.Verified {
		return ErrUnverified
	}
	if p.Type != TypeAdminAccess {
		return ErrWrongType
	}
	return nil
}
