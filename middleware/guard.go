package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/coursemaster/coursegate"
	"github.com/coursemaster/coursegate/gate"
)

// HopsCookie counts the consecutive gate redirects a browser has followed.
const HopsCookie = "cg_hops"

type resultContextKey struct{}

// ResultFromContext returns the gate result of an allowed request.
func ResultFromContext(ctx context.Context) (gate.Result, bool) {
	res, ok := ctx.Value(resultContextKey{}).(gate.Result)
	return res, ok
}

// Guard checks every request path with engine and answers gate redirects with 303 See Other.
// Allowed requests reach next with the result in their context.
//
// The visitor profile must already be in the request context (see [Profile]).
func Guard(engine *coursegate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			hops := readHops(r)
			res, err := engine.CheckRoute(r.Context(), r.URL.Path, hops)
			if res.Decision.Redirect() {
				setHops(w, hops+1)
				http.Redirect(w, r, res.Location, http.StatusSeeOther)
				return
			}
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			if hops > 0 {
				setHops(w, 0)
			}
			ctx := context.WithValue(r.Context(), resultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func readHops(r *http.Request) int {
	c, err := r.Cookie(HopsCookie)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(c.Value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func setHops(w http.ResponseWriter, n int) {
	c := &http.Cookie{
		Name:     HopsCookie,
		Value:    strconv.Itoa(n),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if n == 0 {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}
