package admintoken

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxTokenSize bounds the input accepted by Decode.
const MaxTokenSize = 8 << 10

const (
	delimiter       = "."
	signaturePrefix = "admin-"
)

// ErrDecode matches every *DecodeError through errors.Is.
var ErrDecode = errors.New("admin token decode failed")

// DecodeError describes why a token could not be decoded.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "admin token: " + e.Reason + ": " + e.Err.Error()
	}
	return "admin token: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports ErrDecode as a match.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func decodeErr(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

// Encode returns the local token form of p, stamped with the current time.
func Encode(p Payload) (string, error) {
	return EncodeAt(p, time.Now())
}

// EncodeAt returns the local token form of p with the signature segment stamped at t.
func EncodeAt(p Payload, t time.Time) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode admin payload: %w", err)
	}
	escaped := strings.ReplaceAll(url.QueryEscape(string(body)), "+", "%20")
	sig := signaturePrefix + strconv.FormatInt(t.UnixMilli(), 10)

	return base64.StdEncoding.EncodeToString([]byte(escaped)) +
		delimiter +
		base64.StdEncoding.EncodeToString([]byte(sig)), nil
}

// Decode parses a local token. It fails with *DecodeError unless token has exactly two
// segments and the first carries a JSON object with all six payload fields correctly typed.
//
// The signature segment is not checked.
func Decode(token string) (Payload, error) {
	if len(token) > MaxTokenSize {
		return Payload{}, decodeErr("token too large", nil)
	}
	parts := strings.Split(token, delimiter)
	if len(parts) != 2 {
		return Payload{}, decodeErr(fmt.Sprintf("expected 2 segments, got %d", len(parts)), nil)
	}
	if parts[0] == "" {
		return Payload{}, decodeErr("empty payload segment", nil)
	}

	raw, err := decodeBase64(parts[0])
	if err != nil {
		return Payload{}, decodeErr("payload segment is not base64", err)
	}
	body, err := url.PathUnescape(string(raw))
	if err != nil {
		return Payload{}, decodeErr("payload segment is not percent-encoded text", err)
	}

	return parsePayload([]byte(body))
}

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	if b, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
		return b, nil
	}
	return nil, err
}

var requiredFields = []string{"userId", "email", "role", "verified", "exp", "type"}

func parsePayload(body []byte) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return Payload{}, decodeErr("payload is not a JSON object", err)
	}
	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Payload{}, decodeErr("missing field "+name, nil)
		}
	}

	var p Payload
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"userId", &p.UserID},
		{"email", &p.Email},
		{"role", &p.Role},
		{"type", &p.Type},
	} {
		if err := json.Unmarshal(fields[f.name], f.dst); err != nil {
			return Payload{}, decodeErr("field "+f.name+" is not a string", err)
		}
	}
	if err := json.Unmarshal(fields["verified"], &p.Verified); err != nil {
		return Payload{}, decodeErr("field verified is not a boolean", err)
	}
	exp, err := parseExp(fields["exp"])
	if err != nil {
		return Payload{}, decodeErr("field exp is not a number", err)
	}
	p.Exp = exp

	return p, nil
}

func parseExp(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
