package coursegate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/gate"
	"github.com/coursemaster/coursegate/jwt"
)

// Config is the full engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as
// immutable.
type Config struct {
	API         APIConfig
	Credentials CredentialsConfig
	AdminToken  AdminTokenConfig
	Gate        gate.Config
	Listing     ListingConfig
	Passkey     PasskeyConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
BACKEND API
====================================
*/

// APIConfig points the engine at the course backend.
type APIConfig struct {
	// BaseURL is the backend origin; "/api" is appended.
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
CREDENTIALS
====================================
*/

// Credential backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// CredentialsConfig selects where visitor credentials are kept.
type CredentialsConfig struct {
	Backend string
	// Dir holds one JSON file per profile for BackendFile.
	Dir string
	// RedisPrefix namespaces keys for BackendRedis.
	RedisPrefix string
	// RedisTTL expires idle profiles for BackendRedis. Zero keeps them.
	RedisTTL time.Duration
}

/*
====================================
ADMIN TOKEN
====================================
*/

// AdminTokenConfig controls how elevated admin tokens are read and minted.
type AdminTokenConfig struct {
	// Format is "auto", "local" or "jwt".
	Format string
	// SigningMethod is "" (claims only), "hs256" or "ed25519" for backend JWTs.
	SigningMethod string
	VerifyKey     []byte
	Issuer        string
	// LocalTTL is the lifetime of a locally encoded token, used when the backend accepts a
	// passkey without returning a token.
	LocalTTL time.Duration
}

/*
====================================
LISTING
====================================
*/

// ListingConfig tunes the course catalogue.
type ListingConfig struct {
	DefaultLimit int
	MaxLimit     int
	// Language is the BCP 47 tag used to collate titles.
	Language string
	// FeaturedLimit is the number of courses on the home page.
	FeaturedLimit int
}

/*
====================================
PASSKEY
====================================
*/

// PasskeyConfig throttles failed passkey attempts. Throttling needs a Redis client.
type PasskeyConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

/*
====================================
AUDIT / METRICS
====================================
*/

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration that talks to a local backend and keeps
// credentials in memory.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: api.DefaultBaseURL,
			Timeout: api.DefaultTimeout,
		},
		Credentials: CredentialsConfig{
			Backend:     BackendMemory,
			Dir:         ".coursegate",
			RedisPrefix: "cg",
		},
		AdminToken: AdminTokenConfig{
			Format:   string(admintoken.FormatAuto),
			LocalTTL: time.Hour,
		},
		Gate: gate.DefaultConfig(),
		Listing: ListingConfig{
			DefaultLimit:  course.DefaultLimits().DefaultLimit,
			MaxLimit:      course.DefaultLimits().MaxLimit,
			Language:      "en",
			FeaturedLimit: 4,
		},
		Passkey: PasskeyConfig{
			MaxAttempts: 5,
			Cooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.AdminToken.VerifyKey = cloneBytes(cfg.AdminToken.VerifyKey)
	if cfg.Gate.MemberRoutes != nil {
		out.Gate.MemberRoutes = make(map[string]credential.Role, len(cfg.Gate.MemberRoutes))
		for k, v := range cfg.Gate.MemberRoutes {
			out.Gate.MemberRoutes[k] = v
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// API
	if _, err := api.APIBase(c.API.BaseURL); err != nil {
		return fmt.Errorf("API BaseURL: %w", err)
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Credentials
	switch c.Credentials.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if strings.TrimSpace(c.Credentials.Dir) == "" {
			return errors.New("Credentials Dir is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown credential backend %q", c.Credentials.Backend)
	}
	if c.Credentials.RedisTTL < 0 {
		return errors.New("Credentials RedisTTL must be >= 0")
	}

	// Admin token
	if _, err := admintoken.ParseFormat(c.AdminToken.Format); err != nil {
		return err
	}
	switch jwt.SigningMethod(c.AdminToken.SigningMethod) {
	case jwt.MethodNone:
	case jwt.MethodHS256, jwt.MethodEd25519:
		if len(c.AdminToken.VerifyKey) == 0 {
			return errors.New("AdminToken VerifyKey is required when SigningMethod is set")
		}
	default:
		return fmt.Errorf("unsupported admin token signing method %q", c.AdminToken.SigningMethod)
	}
	if c.AdminToken.LocalTTL <= 0 {
		return errors.New("AdminToken LocalTTL must be > 0")
	}

	// Gate
	if err := c.Gate.Validate(); err != nil {
		return err
	}

	// Listing
	if c.Listing.DefaultLimit <= 0 {
		return errors.New("Listing DefaultLimit must be > 0")
	}
	if c.Listing.MaxLimit < c.Listing.DefaultLimit {
		return errors.New("Listing MaxLimit must be >= DefaultLimit")
	}
	if c.Listing.FeaturedLimit <= 0 {
		return errors.New("Listing FeaturedLimit must be > 0")
	}
	if _, err := language.Parse(c.Listing.Language); err != nil {
		return fmt.Errorf("Listing Language: %w", err)
	}

	// Passkey
	if c.Passkey.MaxAttempts < 0 {
		return errors.New("Passkey MaxAttempts must be >= 0")
	}
	if c.Passkey.MaxAttempts > 0 && c.Passkey.Cooldown <= 0 {
		return errors.New("Passkey Cooldown must be > 0 when MaxAttempts is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a configuration choice that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports risky but valid settings. It does not replace Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if c.AdminToken.LocalTTL > 4*time.Hour {
		add("admin_ttl_long", "locally encoded admin tokens live longer than 4h")
	}
	if c.AdminToken.Format != string(admintoken.FormatLocal) && c.AdminToken.SigningMethod == "" {
		add("jwt_unverified", "backend admin JWTs are read without signature verification")
	}
	if c.Gate.MaxRedirects == 0 {
		add("redirect_guard_disabled", "the admin redirect loop guard is disabled")
	}
	if c.Passkey.MaxAttempts == 0 {
		add("passkey_throttle_disabled", "failed passkey attempts are not throttled")
	}
	if c.Credentials.Backend == BackendMemory {
		add("credentials_in_memory", "credentials are lost when the process exits")
	}
	if c.API.Timeout == 0 {
		add("api_timeout_disabled", "backend calls have no timeout")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "audit events are not emitted")
	}
	return ws
}
