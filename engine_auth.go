package coursegate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/gate"
	"github.com/coursemaster/coursegate/internal/rate"
	"github.com/coursemaster/coursegate/validation"
)

// Messages shown when the backend fails without a message of its own.
const (
	LoginFailedMessage        = "Login failed"
	RegistrationFailedMessage = "Registration failed"
)

// AuthResult is a successful login or registration.
type AuthResult struct {
	User credential.User
	// Location is where the client goes next.
	Location string
}

// Login validates form, signs in against the backend and stores the primary credential in
// the profile. Any admin credential left in the profile is dropped.
func (e *Engine) Login(ctx context.Context, form validation.Login) (AuthResult, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := validation.CheckLogin(form); err != nil {
		e.metricInc(MetricValidationRejected)
		return AuthResult{}, err
	}

	res, err := e.client.Login(ctx, api.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{eventType: AuditLogin, err: err})
		return AuthResult{}, err
	}

	if err := e.signIn(ctx, res); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{eventType: AuditLogin, userID: res.User.Identifier(), err: err})
		return AuthResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditRecord{eventType: AuditLogin, success: true, userID: res.User.Identifier()})
	user := res.User
	return AuthResult{User: user, Location: e.gate.DashboardFor(&user)}, nil
}

// Register validates form, creates the account and signs the new user in.
func (e *Engine) Register(ctx context.Context, form validation.Register) (AuthResult, error) {
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	if err := validation.CheckRegister(form); err != nil {
		e.metricInc(MetricValidationRejected)
		return AuthResult{}, err
	}

	res, err := e.client.Register(ctx, api.RegisterRequest{
		FullName:    form.FullName,
		Email:       form.Email,
		Password:    form.Password,
		Role:        form.Role,
		PhoneNumber: form.PhoneNumber,
		Photo:       form.Photo,
		Gender:      form.Gender,
		DateOfBirth: form.DateOfBirth,
		Address:     form.Address,
	})
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditRecord{eventType: AuditRegister, err: err})
		return AuthResult{}, err
	}

	if err := e.signIn(ctx, res); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditRecord{eventType: AuditRegister, userID: res.User.Identifier(), err: err})
		return AuthResult{}, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditRecord{eventType: AuditRegister, success: true, userID: res.User.Identifier()})
	return AuthResult{User: res.User, Location: e.gate.Config().HomeRoute}, nil
}

func (e *Engine) signIn(ctx context.Context, res api.AuthResult) error {
	store, err := e.store(ctx)
	if err != nil {
		return err
	}
	user := res.User
	if err := store.Set(ctx, credential.SlotPrimary, credential.Credential{Token: res.Token, User: &user}); err != nil {
		return fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if err := store.Clear(ctx, credential.SlotAdmin); err != nil {
		return fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	return nil
}

// primary returns the profile's primary credential or ErrNotLoggedIn.
func (e *Engine) primary(ctx context.Context) (credential.Credential, error) {
	store, err := e.store(ctx)
	if err != nil {
		return credential.Credential{}, err
	}
	cred, ok, err := store.Get(ctx, credential.SlotPrimary)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if !ok {
		return credential.Credential{}, ErrNotLoggedIn
	}
	return cred, nil
}

// VerifyPasskey submits the admin passkey for the signed-in administrator. On success the
// admin credential is stored and the result redirects to the admin home.
//
// A rejected passkey returns a *PasskeyRejectedError carrying the backend's message. When a
// Redis client is configured, failed attempts are counted per user and further attempts are
// refused with ErrPasskeyRateLimited until the cooldown passes.
func (e *Engine) VerifyPasskey(ctx context.Context, form validation.Passkey) (gate.Result, error) {
	res, userID, err := e.verifyPasskey(ctx, form)
	rec := auditRecord{eventType: AuditPasskeyVerify, success: err == nil, userID: userID, err: err}
	e.emitAudit(ctx, rec)

	switch {
	case err == nil:
		e.metricInc(MetricPasskeySuccess)
	case errors.Is(err, ErrPasskeyRateLimited):
		e.metricInc(MetricPasskeyRateLimited)
	default:
		e.metricInc(MetricPasskeyFailure)
	}
	return res, err
}

func (e *Engine) verifyPasskey(ctx context.Context, form validation.Passkey) (gate.Result, string, error) {
	if err := validation.CheckPasskey(form); err != nil {
		e.metricInc(MetricValidationRejected)
		return gate.Result{}, "", err
	}

	primary, err := e.primary(ctx)
	if err != nil {
		return gate.Result{}, "", err
	}
	user := primary.User
	userID := user.Identifier()
	if user.Role != credential.RoleAdmin {
		return gate.Result{}, userID, ErrNotAdmin
	}

	if e.limiter != nil {
		if err := e.limiter.Check(ctx, userID); err != nil {
			return gate.Result{}, userID, limiterError(err)
		}
	}

	verdict, err := e.client.VerifyPasskey(ctx, primary.Token, api.PasskeyRequest{
		Passkey: form.Passkey,
		UserID:  userID,
	})
	if err != nil {
		return gate.Result{}, userID, err
	}
	if !verdict.Success {
		msg := verdict.Message
		if msg == "" {
			msg = DefaultPasskeyMessage
		}
		rejected := &PasskeyRejectedError{Message: msg}
		if e.limiter != nil {
			if err := e.limiter.Increment(ctx, userID); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				e.logger.WarnContext(ctx, "coursegate: passkey attempt not counted", "error", err)
			}
		}
		return gate.Result{}, userID, rejected
	}

	token := verdict.Token
	if token == "" {
		now := e.now()
		token, err = admintoken.EncodeAt(
			admintoken.NewPayload(userID, user.Email, string(user.Role), now.Add(e.config.AdminToken.LocalTTL)),
			now,
		)
		if err != nil {
			return gate.Result{}, userID, err
		}
	}

	store, err := e.store(ctx)
	if err != nil {
		return gate.Result{}, userID, err
	}
	if err := store.Set(ctx, credential.SlotAdmin, credential.Credential{Token: token}); err != nil {
		return gate.Result{}, userID, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if e.limiter != nil {
		if err := e.limiter.Reset(ctx, userID); err != nil {
			e.logger.WarnContext(ctx, "coursegate: passkey attempts not reset", "error", err)
		}
	}

	cfg := e.gate.Config()
	return gate.Result{
		Decision: gate.RedirectAdmin,
		State:    gate.StateAllowed,
		Location: cfg.AdminHome,
		Route:    gate.RouteChallenge,
		User:     user,
	}, userID, nil
}

func limiterError(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrPasskeyRateLimited
	}
	return fmt.Errorf("%w: %w", ErrPasskeyUnavailable, err)
}
