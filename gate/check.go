package gate

import (
	"context"
	"errors"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/credential"
)

// Request is one route entry.
type Request struct {
	Path string
	// Hops is the number of consecutive redirects that led to this request.
	Hops int
}

// Result is the outcome of a check.
type Result struct {
	Decision Decision
	State    State
	Reason   Reason
	// Location is the redirect target; empty when Decision is Allow.
	Location string
	Route    RouteClass
	// User is the primary credential's user when one was read.
	User *credential.User
}

// Check evaluates req against the credentials in store.
//
// A store failure is returned as an error together with a fail-closed Result: the visitor is
// redirected as if no credential were present. A failure to clear an unusable admin
// credential is returned the same way, with the redirect still in place.
func (g *Gate) Check(ctx context.Context, store CredentialStore, req Request) (Result, error) {
	route, role := g.Classify(req.Path)

	var (
		res Result
		err error
	)
	switch route {
	case RouteAdmin:
		res, err = g.checkAdmin(ctx, store)
	case RouteChallenge:
		res, err = g.checkChallenge(ctx, store)
	case RouteMember:
		res, err = g.checkMember(ctx, store, role)
	default:
		res = Result{Decision: Allow}
		res.User, _ = primaryUser(ctx, store)
	}
	res.Route = route

	if g.cfg.MaxRedirects > 0 && req.Hops >= g.cfg.MaxRedirects &&
		(res.Decision == RedirectChallenge || res.Decision == RedirectAdmin) {
		if clearErr := store.Clear(ctx, credential.SlotAdmin); clearErr != nil && err == nil {
			err = clearErr
		}
		res.Decision = RedirectHome
		res.Reason = ReasonRedirectLimit
		if res.State == StateAllowed {
			res.State = StateDenied
		}
	}
	res.Location = g.location(res.Decision)

	return res, err
}

// Logout clears both credential slots and sends the visitor home.
func (g *Gate) Logout(ctx context.Context, store CredentialStore) (Result, error) {
	res := Result{Decision: RedirectHome, Location: g.cfg.HomeRoute}
	if err := store.ClearAll(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (g *Gate) checkAdmin(ctx context.Context, store CredentialStore) (Result, error) {
	deny := func(reason Reason) Result {
		return Result{Decision: RedirectChallenge, State: StateDenied, Reason: reason}
	}

	cred, ok, err := store.Get(ctx, credential.SlotAdmin)
	if err != nil {
		return deny(ReasonStoreError), err
	}
	if !ok {
		return deny(ReasonMissing), nil
	}

	if reason := g.evaluate(cred.Token); reason != ReasonNone {
		return deny(reason), store.Clear(ctx, credential.SlotAdmin)
	}

	res := Result{Decision: Allow, State: StateAllowed}
	res.User, _ = primaryUser(ctx, store)
	return res, nil
}

func (g *Gate) checkChallenge(ctx context.Context, store CredentialStore) (Result, error) {
	home := func(reason Reason) Result {
		return Result{Decision: RedirectHome, Reason: reason}
	}

	primary, ok, err := store.Get(ctx, credential.SlotPrimary)
	if err != nil {
		return home(ReasonStoreError), err
	}
	if !ok {
		return home(ReasonNoPrimary), nil
	}
	if primary.User.Role != credential.RoleAdmin {
		return Result{Decision: RedirectHome, Reason: ReasonWrongRole, User: primary.User}, nil
	}

	admin, ok, err := store.Get(ctx, credential.SlotAdmin)
	if err != nil {
		return Result{Decision: RedirectHome, Reason: ReasonStoreError, User: primary.User}, err
	}
	if ok {
		reason := g.evaluate(admin.Token)
		if reason == ReasonNone {
			return Result{Decision: RedirectAdmin, State: StateAllowed, Reason: ReasonElevated, User: primary.User}, nil
		}
		if err := store.Clear(ctx, credential.SlotAdmin); err != nil {
			return Result{Decision: Allow, Reason: reason, User: primary.User}, err
		}
		return Result{Decision: Allow, Reason: reason, User: primary.User}, nil
	}

	return Result{Decision: Allow, User: primary.User}, nil
}

func (g *Gate) checkMember(ctx context.Context, store CredentialStore, role credential.Role) (Result, error) {
	primary, ok, err := store.Get(ctx, credential.SlotPrimary)
	if err != nil {
		return Result{Decision: RedirectLogin, Reason: ReasonStoreError}, err
	}
	if !ok {
		return Result{Decision: RedirectLogin, Reason: ReasonNoPrimary}, nil
	}
	if primary.User.Role != role {
		return Result{Decision: RedirectHome, Reason: ReasonWrongRole, User: primary.User}, nil
	}
	return Result{Decision: Allow, User: primary.User}, nil
}

// evaluate returns ReasonNone when token decodes to a payload valid now.
func (g *Gate) evaluate(token string) Reason {
	p, err := g.decoder.Decode(token)
	if err != nil {
		return ReasonDecode
	}
	switch err := p.Problem(g.now()); {
	case err == nil:
		return ReasonNone
	case errors.Is(err, admintoken.ErrExpired):
		return ReasonExpired
	case errors.Is(err, admintoken.ErrUnverified):
		return ReasonUnverified
	default:
		return ReasonWrongType
	}
}

func (g *Gate) location(d Decision) string {
	switch d {
	case RedirectChallenge:
		return g.cfg.ChallengeRoute
	case RedirectLogin:
		return g.cfg.LoginRoute
	case RedirectHome:
		return g.cfg.HomeRoute
	case RedirectAdmin:
		return g.cfg.AdminHome
	default:
		return ""
	}
}

func primaryUser(ctx context.Context, store CredentialStore) (*credential.User, error) {
	cred, ok, err := store.Get(ctx, credential.SlotPrimary)
	if err != nil || !ok {
		return nil, err
	}
	return cred.User, nil
}
