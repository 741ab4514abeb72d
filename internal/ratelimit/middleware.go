package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Guard throttles a route group per client key. Redis failures let the
// request through.
type Guard struct {
	Window Window
	Name   string
	Span   time.Duration
	Max    int
	Key    func(*http.Request) string
}

// Middleware implements the chi middleware signature.
func (g Guard) Middleware(next http.Handler) http.Handler {
	keyFn := g.Key
	if keyFn == nil {
		keyFn = ClientIP
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Max <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		decision, err := g.Window.Allow(r.Context(), g.Name+":"+keyFn(r), g.Span, g.Max)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("lookup", "rate_limit").Msg("rate limiter unavailable")
			if obs.DegradedLookupsTotal != nil {
				obs.DegradedLookupsTotal.WithLabelValues("rate_limit").Inc()
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(g.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, common.CodeRateLimited, "too many pricing requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP keys requests by the remote host; chi's RealIP middleware has
// already applied forwarding headers by the time it runs.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
