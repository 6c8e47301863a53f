package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coursemaster/coursegate/credential"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName    string          `json:"fullName"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	Role        credential.Role `json:"role"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
	Photo       string          `json:"photo,omitempty"`
	Gender      string          `json:"gender,omitempty"`
	DateOfBirth string          `json:"dateOfBirth,omitempty"`
	Address     string          `json:"address,omitempty"`
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	Token string          `json:"token"`
	User  credential.User `json:"user"`
}

// PasskeyRequest is the body of POST /admin/verify-passkey.
type PasskeyRequest struct {
	Passkey string `json:"passkey"`
	UserID  string `json:"userId"`
}

// PasskeyResult is the backend's verdict on a passkey. Token is set when the backend issues
// the admin token itself.
type PasskeyResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// Login exchanges email and password for a bearer token and user record.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", req)
}

// Register creates an account and returns its bearer token and user record.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: body}, &out); err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, fmt.Errorf("%w: %s returned no token", ErrTransport, path)
	}
	return out, nil
}

// VerifyPasskey submits an admin passkey with the caller's bearer token.
//
// The backend answers with {success, token?, message?} whatever the status code, so a
// rejected passkey is a PasskeyResult with Success false, not an error. Only responses
// without that body are errors.
func (c *Client) VerifyPasskey(ctx context.Context, bearer string, req PasskeyRequest) (PasskeyResult, error) {
	raw, status, err := c.send(ctx, call{method: http.MethodPost, path: "/admin/verify-passkey", bearer: bearer, body: req})
	if err != nil {
		return PasskeyResult{}, err
	}

	var out PasskeyResult
	if jsonErr := json.Unmarshal(raw, &out); jsonErr != nil || !strings.Contains(string(raw), `"success"`) {
		if status < 200 || status > 299 {
			return PasskeyResult{}, responseError(status, raw)
		}
		return PasskeyResult{}, fmt.Errorf("%w: unexpected passkey response", ErrTransport)
	}
	if !out.Success {
		out.Token = ""
	}
	return out, nil
}
