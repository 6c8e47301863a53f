package gate

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/credential"
)

// ErrTooManyRedirects is returned by Machine.Navigate when redirects do not settle.
var ErrTooManyRedirects = errors.New("gate: too many redirects")

// CredentialStore is the subset of *credential.Store the gate needs.
type CredentialStore interface {
	Get(ctx context.Context, slot credential.Slot) (credential.Credential, bool, error)
	Clear(ctx context.Context, slot credential.Slot) error
	ClearAll(ctx context.Context) error
}

// TokenDecoder turns a stored admin credential into its payload.
type TokenDecoder interface {
	Decode(token string) (admintoken.Payload, error)
}

// Decision is the outcome of a route check.
type Decision uint8

const (
	// Allow renders the route.
	Allow Decision = iota
	// RedirectChallenge sends the visitor to the passkey challenge.
	RedirectChallenge
	// RedirectLogin sends the visitor to the login page.
	RedirectLogin
	// RedirectHome sends the visitor to the public home page.
	RedirectHome
	// RedirectAdmin sends an already elevated visitor from the challenge to the admin home.
	RedirectAdmin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectChallenge:
		return "redirect_challenge"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	case RedirectAdmin:
		return "redirect_admin"
	default:
		return "unknown"
	}
}

// Redirect reports whether d sends the visitor elsewhere.
func (d Decision) Redirect() bool {
	return d != Allow
}

// State is the admin gate state. Only admin-protected routes leave StateUnknown.
type State uint8

const (
	StateUnknown State = iota
	StateChecking
	StateAllowed
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Reason records why a check ended the way it did.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMissing       Reason = "missing"
	ReasonDecode        Reason = "decode"
	ReasonExpired       Reason = "expired"
	ReasonUnverified    Reason = "unverified"
	ReasonWrongType     Reason = "wrong_type"
	ReasonNoPrimary     Reason = "no_primary"
	ReasonWrongRole     Reason = "wrong_role"
	ReasonElevated      Reason = "already_elevated"
	ReasonRedirectLimit Reason = "redirect_limit"
	ReasonStoreError    Reason = "store_error"
)

// RouteClass groups paths by the rule that guards them.
type RouteClass uint8

const (
	RoutePublic RouteClass = iota
	RouteAdmin
	RouteChallenge
	RouteMember
)

func (c RouteClass) String() string {
	switch c {
	case RouteAdmin:
		return "admin"
	case RouteChallenge:
		return "challenge"
	case RouteMember:
		return "member"
	default:
		return "public"
	}
}

// Config holds the route layout guarded by a Gate.
type Config struct {
	AdminPrefix    string
	ChallengeRoute string
	AdminHome      string
	HomeRoute      string
	LoginRoute     string
	// MemberRoutes maps a dashboard prefix to the role allowed to open it.
	MemberRoutes map[string]credential.Role
	// MaxRedirects is the number of consecutive redirects after which the gate stops bouncing
	// between the admin area and the challenge. Zero disables the guard.
	MaxRedirects int
}

// DefaultConfig returns the route layout of the web client.
func DefaultConfig() Config {
	return Config{
		AdminPrefix:    "/admin",
		ChallengeRoute: "/admin/verify",
		AdminHome:      "/admin",
		HomeRoute:      "/",
		LoginRoute:     "/login",
		MemberRoutes: map[string]credential.Role{
			"/student":    credential.RoleStudent,
			"/instructor": credential.RoleInstructor,
		},
		MaxRedirects: 3,
	}
}

// Validate checks that every route is an absolute path and that the challenge lives under the
// admin prefix.
func (c Config) Validate() error {
	for name, r := range map[string]string{
		"AdminPrefix":    c.AdminPrefix,
		"ChallengeRoute": c.ChallengeRoute,
		"AdminHome":      c.AdminHome,
		"HomeRoute":      c.HomeRoute,
		"LoginRoute":     c.LoginRoute,
	} {
		if !strings.HasPrefix(r, "/") {
			return errors.New("gate: " + name + " must be an absolute path")
		}
	}
	if c.AdminPrefix == "/" {
		return errors.New("gate: AdminPrefix must not be the site root")
	}
	if !underPrefix(cleanPath(c.ChallengeRoute), cleanPath(c.AdminPrefix)) {
		return errors.New("gate: ChallengeRoute must be under AdminPrefix")
	}
	if c.MaxRedirects < 0 {
		return errors.New("gate: MaxRedirects must be >= 0")
	}
	for prefix, role := range c.MemberRoutes {
		if !strings.HasPrefix(prefix, "/") || prefix == "/" {
			return errors.New("gate: member route " + prefix + " must be a non-root absolute path")
		}
		if !role.Valid() {
			return errors.New("gate: member route " + prefix + " has unknown role")
		}
	}
	return nil
}

// Gate evaluates route checks. It is safe for concurrent use.
type Gate struct {
	cfg     Config
	decoder TokenDecoder
	now     func() time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New returns a Gate for cfg using decoder to read admin credentials.
func New(cfg Config, decoder TokenDecoder, opts ...Option) (*Gate, error) {
	if decoder == nil {
		return nil, errors.New("gate: decoder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	members := make(map[string]credential.Role, len(cfg.MemberRoutes))
	for prefix, role := range cfg.MemberRoutes {
		members[cleanPath(prefix)] = role
	}
	cfg.MemberRoutes = members
	cfg.AdminPrefix = cleanPath(cfg.AdminPrefix)
	cfg.ChallengeRoute = cleanPath(cfg.ChallengeRoute)

	g := &Gate{cfg: cfg, decoder: decoder, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns the route layout.
func (g *Gate) Config() Config {
	return g.cfg
}

// Classify returns the class of p and, for member routes, the required role.
func (g *Gate) Classify(p string) (RouteClass, credential.Role) {
	p = cleanPath(p)
	if p == g.cfg.ChallengeRoute {
		return RouteChallenge, ""
	}
	if underPrefix(p, g.cfg.AdminPrefix) {
		return RouteAdmin, credential.RoleAdmin
	}
	for prefix, role := range g.cfg.MemberRoutes {
		if underPrefix(p, prefix) {
			return RouteMember, role
		}
	}
	return RoutePublic, ""
}

// DashboardFor returns the landing route for user's role. A nil user or unknown role lands on
// the home route.
func (g *Gate) DashboardFor(user *credential.User) string {
	if user == nil {
		return g.cfg.HomeRoute
	}
	if user.Role == credential.RoleAdmin {
		return g.cfg.AdminHome
	}
	for prefix, role := range g.cfg.MemberRoutes {
		if role == user.Role {
			return prefix
		}
	}
	return g.cfg.HomeRoute
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
