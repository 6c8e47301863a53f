package coursegate

import (
	"context"

	"github.com/coursemaster/coursegate/credential"
)

type profileContextKey struct{}
type requestIDContextKey struct{}

// WithProfile selects the visitor profile whose credentials the Engine reads and writes.
// Without it the default profile is used.
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileContextKey{}, profile)
}

// WithRequestID attaches a request identifier that is copied into audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// ProfileFromContext returns the profile named by [WithProfile], or the default profile.
func ProfileFromContext(ctx context.Context) string {
	if ctx == nil {
		return credential.DefaultProfile
	}
	profile, _ := ctx.Value(profileContextKey{}).(string)
	if profile == "" {
		return credential.DefaultProfile
	}
	return profile
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
