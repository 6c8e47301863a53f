package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coursemaster/coursegate"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COURSEGATE_"

// Settings is the complete process configuration.
type Settings struct {
	Server      ServerSettings      `yaml:"server"`
	Redis       RedisSettings       `yaml:"redis"`
	Log         LogSettings         `yaml:"log"`
	API         APISettings         `yaml:"api"`
	Credentials CredentialsSettings `yaml:"credentials"`
	AdminToken  AdminTokenSettings  `yaml:"admin_token"`
	Gate        GateSettings        `yaml:"gate"`
	Listing     ListingSettings     `yaml:"listing"`
	Passkey     PasskeySettings     `yaml:"passkey"`
	Audit       AuditSettings       `yaml:"audit"`
	Metrics     MetricsSettings     `yaml:"metrics"`
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisSettings configures the Redis client. An empty Addr means no Redis.
type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogSettings struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
}

type APISettings struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type CredentialsSettings struct {
	Backend     string        `yaml:"backend"`
	Dir         string        `yaml:"dir"`
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

// AdminTokenSettings configures admin token decoding. VerifyKeyFile wins over VerifyKey.
type AdminTokenSettings struct {
	Format        string        `yaml:"format"`
	SigningMethod string        `yaml:"signing_method"`
	VerifyKey     string        `yaml:"verify_key"`
	VerifyKeyFile string        `yaml:"verify_key_file"`
	Issuer        string        `yaml:"issuer"`
	LocalTTL      time.Duration `yaml:"local_ttl"`
}

type GateSettings struct {
	MaxRedirects int `yaml:"max_redirects"`
}

type ListingSettings struct {
	DefaultLimit  int    `yaml:"default_limit"`
	MaxLimit      int    `yaml:"max_limit"`
	Language      string `yaml:"language"`
	FeaturedLimit int    `yaml:"featured_limit"`
}

type PasskeySettings struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// AuditSettings configures audit events. An empty Path writes them to stderr.
type AuditSettings struct {
	Enabled    bool   `yaml:"enabled"`
	BufferSize int    `yaml:"buffer_size"`
	DropIfFull bool   `yaml:"drop_if_full"`
	Path       string `yaml:"path"`
}

type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
	Latency bool `yaml:"latency"`
}

// Default returns the settings matching coursegate.DefaultConfig.
func Default() *Settings {
	cfg := coursegate.DefaultConfig()
	return &Settings{
		Server: ServerSettings{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogSettings{Level: "info"},
		API: APISettings{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		},
		Credentials: CredentialsSettings{
			Backend:     cfg.Credentials.Backend,
			Dir:         cfg.Credentials.Dir,
			RedisPrefix: cfg.Credentials.RedisPrefix,
			RedisTTL:    cfg.Credentials.RedisTTL,
		},
		AdminToken: AdminTokenSettings{
			Format:        cfg.AdminToken.Format,
			SigningMethod: cfg.AdminToken.SigningMethod,
			Issuer:        cfg.AdminToken.Issuer,
			LocalTTL:      cfg.AdminToken.LocalTTL,
		},
		Gate: GateSettings{MaxRedirects: cfg.Gate.MaxRedirects},
		Listing: ListingSettings{
			DefaultLimit:  cfg.Listing.DefaultLimit,
			MaxLimit:      cfg.Listing.MaxLimit,
			Language:      cfg.Listing.Language,
			FeaturedLimit: cfg.Listing.FeaturedLimit,
		},
		Passkey: PasskeySettings{
			MaxAttempts: cfg.Passkey.MaxAttempts,
			Cooldown:    cfg.Passkey.Cooldown,
		},
		Audit: AuditSettings{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		},
		Metrics: MetricsSettings{
			Enabled: cfg.Metrics.Enabled,
			Latency: cfg.Metrics.EnableLatencyHistograms,
		},
	}
}

// Options selects the sources Load reads.
type Options struct {
	// ConfigFile is a YAML file. Empty skips it.
	ConfigFile string
	// EnvFile is loaded into the environment without overriding variables already set.
	// Empty tries ./.env and ignores its absence.
	EnvFile string
}

// Load builds Settings from defaults, the YAML file, the .env file and the environment.
func Load(opts Options) (*Settings, error) {
	s := Default()

	if opts.ConfigFile != "" {
		data, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return s, nil
}

type lookupFunc func(key string) (string, bool)

func (s *Settings) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("ADDR", &s.Server.Addr)
	e.list("ALLOWED_ORIGINS", &s.Server.AllowedOrigins)
	e.boolean("SECURE_COOKIES", &s.Server.SecureCookies)
	e.duration("SHUTDOWN_TIMEOUT", &s.Server.ShutdownTimeout)

	e.str("REDIS_ADDR", &s.Redis.Addr)
	e.str("REDIS_PASSWORD", &s.Redis.Password)
	e.integer("REDIS_DB", &s.Redis.DB)

	e.str("LOG_LEVEL", &s.Log.Level)

	e.str("API_URL", &s.API.BaseURL)
	e.duration("API_TIMEOUT", &s.API.Timeout)
	e.str("API_USER_AGENT", &s.API.UserAgent)

	e.str("CREDENTIALS_BACKEND", &s.Credentials.Backend)
	e.str("CREDENTIALS_DIR", &s.Credentials.Dir)
	e.str("CREDENTIALS_REDIS_PREFIX", &s.Credentials.RedisPrefix)
	e.duration("CREDENTIALS_REDIS_TTL", &s.Credentials.RedisTTL)

	e.str("ADMIN_TOKEN_FORMAT", &s.AdminToken.Format)
	e.str("ADMIN_TOKEN_SIGNING_METHOD", &s.AdminToken.SigningMethod)
	e.str("ADMIN_TOKEN_VERIFY_KEY", &s.AdminToken.VerifyKey)
	e.str("ADMIN_TOKEN_VERIFY_KEY_FILE", &s.AdminToken.VerifyKeyFile)
	e.str("ADMIN_TOKEN_ISSUER", &s.AdminToken.Issuer)
	e.duration("ADMIN_TOKEN_LOCAL_TTL", &s.AdminToken.LocalTTL)

	e.integer("GATE_MAX_REDIRECTS", &s.Gate.MaxRedirects)

	e.integer("LISTING_DEFAULT_LIMIT", &s.Listing.DefaultLimit)
	e.integer("LISTING_MAX_LIMIT", &s.Listing.MaxLimit)
	e.str("LISTING_LANGUAGE", &s.Listing.Language)
	e.integer("LISTING_FEATURED_LIMIT", &s.Listing.FeaturedLimit)

	e.integer("PASSKEY_MAX_ATTEMPTS", &s.Passkey.MaxAttempts)
	e.duration("PASSKEY_COOLDOWN", &s.Passkey.Cooldown)

	e.boolean("AUDIT_ENABLED", &s.Audit.Enabled)
	e.integer("AUDIT_BUFFER_SIZE", &s.Audit.BufferSize)
	e.boolean("AUDIT_DROP_IF_FULL", &s.Audit.DropIfFull)
	e.str("AUDIT_PATH", &s.Audit.Path)

	e.boolean("METRICS_ENABLED", &s.Metrics.Enabled)
	e.boolean("METRICS_LATENCY", &s.Metrics.Latency)

	return e.err
}

// envReader applies COURSEGATE_* variables and keeps the first parse error.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return
	}
	*dst = d
}

// LogLevel parses Log.Level.
func (s *Settings) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// EngineConfig converts s into a coursegate.Config and validates it.
func (s *Settings) EngineConfig() (coursegate.Config, error) {
	cfg := coursegate.DefaultConfig()

	cfg.API.BaseURL = s.API.BaseURL
	cfg.API.Timeout = s.API.Timeout
	cfg.API.UserAgent = s.API.UserAgent

	cfg.Credentials.Backend = s.Credentials.Backend
	cfg.Credentials.Dir = s.Credentials.Dir
	cfg.Credentials.RedisPrefix = s.Credentials.RedisPrefix
	cfg.Credentials.RedisTTL = s.Credentials.RedisTTL

	cfg.AdminToken.Format = s.AdminToken.Format
	cfg.AdminToken.SigningMethod = s.AdminToken.SigningMethod
	cfg.AdminToken.Issuer = s.AdminToken.Issuer
	cfg.AdminToken.LocalTTL = s.AdminToken.LocalTTL
	switch {
	case s.AdminToken.VerifyKeyFile != "":
		key, err := os.ReadFile(s.AdminToken.VerifyKeyFile)
		if err != nil {
			return coursegate.Config{}, fmt.Errorf("read admin token key: %w", err)
		}
		cfg.AdminToken.VerifyKey = key
	case s.AdminToken.VerifyKey != "":
		cfg.AdminToken.VerifyKey = []byte(s.AdminToken.VerifyKey)
	}

	cfg.Gate.MaxRedirects = s.Gate.MaxRedirects

	cfg.Listing.DefaultLimit = s.Listing.DefaultLimit
	cfg.Listing.MaxLimit = s.Listing.MaxLimit
	cfg.Listing.Language = s.Listing.Language
	cfg.Listing.FeaturedLimit = s.Listing.FeaturedLimit

	cfg.Passkey.MaxAttempts = s.Passkey.MaxAttempts
	cfg.Passkey.Cooldown = s.Passkey.Cooldown

	cfg.Audit.Enabled = s.Audit.Enabled
	cfg.Audit.BufferSize = s.Audit.BufferSize
	cfg.Audit.DropIfFull = s.Audit.DropIfFull

	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = s.Metrics.Latency

	if err := cfg.Validate(); err != nil {
		return coursegate.Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that coursegate.Config does not cover.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if s.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must be >= 0")
	}
	if _, err := s.LogLevel(); err != nil {
		return err
	}
	if s.Credentials.Backend == coursegate.BackendRedis && s.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis credential backend")
	}
	_, err := s.EngineConfig()
	return err
}
