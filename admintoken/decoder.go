package admintoken

import (
	"fmt"
	"strings"

	"github.com/coursemaster/coursegate/jwt"
)

// Format selects which token shapes a Decoder accepts.
type Format string

const (
	// FormatAuto picks the JWT reader for three-segment tokens and the local codec otherwise.
	FormatAuto Format = "auto"
	// FormatLocal accepts only tokens produced by Encode.
	FormatLocal Format = "local"
	// FormatJWT accepts only backend-issued JWTs.
	FormatJWT Format = "jwt"
)

// ParseFormat maps a configuration string to a Format. The empty string is FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatLocal, FormatJWT:
		return f, nil
	default:
		return "", fmt.Errorf("unknown admin token format %q", s)
	}
}

// Decoder turns a stored admin credential into a Payload.
type Decoder struct {
	format Format
	jwt    *jwt.Manager
}

// NewDecoder returns a Decoder for format. m reads JWTs; nil means claims are read without
// signature verification.
func NewDecoder(format Format, m *jwt.Manager) (*Decoder, error) {
	if format == "" {
		format = FormatAuto
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if m == nil {
		var err error
		if m, err = jwt.NewManager(jwt.Config{}); err != nil {
			return nil, err
		}
	}
	return &Decoder{format: format, jwt: m}, nil
}

// Format returns the configured format.
func (d *Decoder) Format() Format {
	return d.format
}

// Decode parses token according to the configured format. Failures are *DecodeError.
func (d *Decoder) Decode(token string) (Payload, error) {
	switch d.format {
	case FormatLocal:
		return Decode(token)
	case FormatJWT:
		return ParseJWT(d.jwt, token)
	default:
		if strings.Count(token, delimiter) == 2 {
			return ParseJWT(d.jwt, token)
		}
		return Decode(token)
	}
}

// ParseJWT reads a backend-issued admin JWT with m into a Payload. Every payload field must
// be present.
func ParseJWT(m *jwt.Manager, token string) (Payload, error) {
	if len(token) > MaxTokenSize {
		return Payload{}, decodeErr("token too large", nil)
	}
	claims, err := m.Parse(token)
	if err != nil {
		return Payload{}, decodeErr("invalid jwt", err)
	}

	switch {
	case claims.UserID == "":
		return Payload{}, decodeErr("missing field userId", nil)
	case claims.Email == "":
		return Payload{}, decodeErr("missing field email", nil)
	case claims.Role == "":
		return Payload{}, decodeErr("missing field role", nil)
	case claims.Verified == nil:
		return Payload{}, decodeErr("missing field verified", nil)
	case claims.ExpiresAt == nil:
		return Payload{}, decodeErr("missing field exp", nil)
	case claims.Type == "":
		return Payload{}, decodeErr("missing field type", nil)
	}

	return Payload{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Role:     claims.Role,
		Verified: *claims.Verified,
		Exp:      claims.ExpiresAt.Unix(),
		Type:     claims.Type,
	}, nil
}
