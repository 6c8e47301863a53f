package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects how backend-issued admin tokens are checked.
type SigningMethod string

const (
	// MethodNone reads claims without checking the signature. The backend re-verifies the
	// token on every API call, so the client only needs the claims.
	MethodNone SigningMethod = ""
	// MethodEd25519 verifies EdDSA signatures with a public key.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 verifies HMAC-SHA256 signatures with a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrNoSigningKey is returned by Sign when the manager holds no private key.
	ErrNoSigningKey = errors.New("no signing key configured")
	// ErrWrongIssuer is returned when Issuer is configured and the token names another.
	ErrWrongIssuer = errors.New("token issuer mismatch")
)

// Config defines how a Manager reads and, for tests and local tooling, signs admin tokens.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	SigningMethod SigningMethod
	// VerifyKey is the HS256 secret or the Ed25519 public key (raw or PEM).
	VerifyKey []byte
	// SignKey is the Ed25519 private key (raw or PEM). HS256 signs with VerifyKey.
	SignKey []byte
	Issuer  string
}

// AdminClaims is the claim set the backend puts in an elevated admin token.
//
// Verified is a pointer so that an absent claim can be told apart from false.
type AdminClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified *bool  `json:"verified"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// Manager parses backend-issued admin tokens.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
//
// NewManager may return an error when the signing method is unknown or a key does not parse.
func NewManager(cfg Config) (*Manager, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	switch cfg.SigningMethod {
	case MethodNone:
	case MethodHS256:
		if len(cfg.VerifyKey) == 0 {
			return nil, errors.New("hs256 requires a shared secret")
		}
	case MethodEd25519:
		if len(cfg.VerifyKey) == 0 {
			return nil, errors.New("ed25519 requires a public key")
		}
		if _, err := parseEdPublicKey(cfg.VerifyKey); err != nil {
			return nil, err
		}
		if len(cfg.SignKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.SignKey); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	return &Manager{config: cfg}, nil
}

// Verifies reports whether Parse checks signatures.
func (m *Manager) Verifies() bool {
	return m.config.SigningMethod != MethodNone
}

// Parse reads the claims of tokenStr.
//
// Time-based claims are not validated here: expiry is a property of the decoded payload and is
// judged by the caller's clock, so an expired token still parses.
func (m *Manager) Parse(tokenStr string) (*AdminClaims, error) {
	claims := &AdminClaims{}

	if !m.Verifies() {
		parser := jwt.NewParser(jwt.WithoutClaimsValidation())
		if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, ErrWrongIssuer
	}

	return claims, nil
}

// Sign produces a token carrying claims. It exists for local tooling and test backends; the
// real backend is the only issuer in production.
func (m *Manager) Sign(claims AdminClaims, ttl time.Duration) (string, error) {
	if claims.ExpiresAt == nil && ttl > 0 {
		now := time.Now()
		claims.IssuedAt = jwt.NewNumericDate(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	if claims.Issuer == "" {
		claims.Issuer = m.config.Issuer
	}

	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(m.method(), claims).SignedString(key)
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.VerifyKey, nil
	case MethodEd25519:
		if len(m.config.SignKey) == 0 {
			return nil, ErrNoSigningKey
		}
		return parseEdPrivateKey(m.config.SignKey)
	default:
		return nil, ErrNoSigningKey
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.VerifyKey, nil
	default:
		return parseEdPublicKey(m.config.VerifyKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
