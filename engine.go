package coursegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/gate"
	"github.com/coursemaster/coursegate/internal/audit"
	"github.com/coursemaster/coursegate/internal/rate"
)

// Engine is the client core of the course marketplace: it keeps each visitor's credentials,
// guards routes, talks to the backend and serves the catalogue.
//
// Engine methods are safe for concurrent use. The visitor profile is taken from the context
// (see [WithProfile]).
type Engine struct {
	config   Config
	logger   *slog.Logger
	client   *api.Client
	provider credential.Provider
	gate     *gate.Gate
	decoder  *admintoken.Decoder
	pipeline *course.Pipeline
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	metrics  *Metrics
	now      func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Gate returns the route gate.
func (e *Engine) Gate() *gate.Gate {
	return e.gate
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// store returns the credential store of the profile named in ctx.
func (e *Engine) store(ctx context.Context) (*credential.Store, error) {
	if e == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}
	s, err := e.provider.Store(ProfileFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CheckRoute evaluates a navigation to path. hops is the number of consecutive redirects
// that led here; pass 0 for a fresh navigation.
//
// A credential store failure is returned together with a fail-closed Result.
func (e *Engine) CheckRoute(ctx context.Context, path string, hops int) (gate.Result, error) {
	store, err := e.store(ctx)
	if err != nil {
		return gate.Result{}, err
	}

	res, err := e.gate.Check(ctx, store, gate.Request{Path: path, Hops: hops})
	e.observeGate(ctx, path, res)
	if err != nil {
		e.logger.WarnContext(ctx, "coursegate: route check failed closed", "path", path, "error", err)
		return res, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	return res, nil
}

// Navigate follows gate redirects from path until a route is allowed. It returns every step.
func (e *Engine) Navigate(ctx context.Context, path string) ([]gate.Result, error) {
	store, err := e.store(ctx)
	if err != nil {
		return nil, err
	}
	trail, err := e.gate.NewMachine(store).Navigate(ctx, path)
	for _, res := range trail {
		e.observeGate(ctx, path, res)
	}
	return trail, err
}

func (e *Engine) observeGate(ctx context.Context, path string, res gate.Result) {
	switch res.Reason {
	case gate.ReasonRedirectLimit:
		e.metricInc(MetricGateRedirectLimit)
		e.logger.WarnContext(ctx, "coursegate: admin redirect loop stopped", "path", path)
	case gate.ReasonDecode, gate.ReasonExpired, gate.ReasonUnverified, gate.ReasonWrongType:
		e.metricInc(MetricAdminTokenCleared)
	}
	if res.Route != gate.RouteAdmin {
		return
	}

	rec := auditRecord{route: path, reason: string(res.Reason)}
	if res.User != nil {
		rec.userID = res.User.Identifier()
	}
	if res.Decision == gate.Allow {
		e.metricInc(MetricGateAllow)
		rec.eventType, rec.success = AuditGateAllow, true
	} else {
		e.metricInc(MetricGateDeny)
		rec.eventType = AuditGateDeny
	}
	e.emitAudit(ctx, rec)
}

// Logout clears both credential slots of the profile.
func (e *Engine) Logout(ctx context.Context) (gate.Result, error) {
	store, err := e.store(ctx)
	if err != nil {
		return gate.Result{}, err
	}
	user, _ := e.CurrentUser(ctx)

	res, err := e.gate.Logout(ctx, store)
	rec := auditRecord{eventType: AuditLogout, success: err == nil, err: err}
	if user != nil {
		rec.userID = user.Identifier()
	}
	e.emitAudit(ctx, rec)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	e.metricInc(MetricLogout)
	return res, nil
}

// ExitAdmin drops the admin credential only and sends the visitor home. The primary login
// stays.
func (e *Engine) ExitAdmin(ctx context.Context) (gate.Result, error) {
	store, err := e.store(ctx)
	if err != nil {
		return gate.Result{}, err
	}
	cfg := e.gate.Config()
	res := gate.Result{Decision: gate.RedirectHome, Location: cfg.HomeRoute}
	err = store.Clear(ctx, credential.SlotAdmin)
	e.emitAudit(ctx, auditRecord{eventType: AuditExitAdmin, success: err == nil, err: err})
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	return res, nil
}

// CurrentUser returns the signed-in user, or nil.
func (e *Engine) CurrentUser(ctx context.Context) (*credential.User, error) {
	store, err := e.store(ctx)
	if err != nil {
		return nil, err
	}
	cred, ok, err := store.Get(ctx, credential.SlotPrimary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if !ok {
		return nil, nil
	}
	return cred.User, nil
}

// DashboardFor returns the dashboard route of the signed-in user, or the login route.
func (e *Engine) DashboardFor(ctx context.Context) (string, error) {
	user, err := e.CurrentUser(ctx)
	if err != nil {
		return e.gate.Config().LoginRoute, err
	}
	return e.gate.DashboardFor(user), nil
}

// AdminSession returns the payload of the profile's admin token when it is valid now.
func (e *Engine) AdminSession(ctx context.Context) (admintoken.Payload, error) {
	res, err := e.CheckRoute(ctx, e.gate.Config().AdminHome, 0)
	if err != nil {
		return admintoken.Payload{}, err
	}
	if res.Decision != gate.Allow {
		return admintoken.Payload{}, ErrAdminRequired
	}

	store, err := e.store(ctx)
	if err != nil {
		return admintoken.Payload{}, err
	}
	cred, ok, err := store.Get(ctx, credential.SlotAdmin)
	if err != nil {
		return admintoken.Payload{}, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if !ok {
		return admintoken.Payload{}, ErrAdminRequired
	}
	p, err := e.decoder.Decode(cred.Token)
	if err != nil {
		return admintoken.Payload{}, errors.Join(ErrAdminRequired, err)
	}
	return p, nil
}

// onDegrade observes pipeline results replaced by empty ones.
func (e *Engine) onDegrade(op string, _ error) {
	if op == "categories" {
		e.metricInc(MetricCategoriesDegraded)
	} else {
		e.metricInc(MetricListingDegraded)
	}
}
