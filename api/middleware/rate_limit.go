package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one traffic surface. A zero limit disables that
// counter; a zero window disables the policy.
type RateLimitPolicy struct {
	Name          string
	Window        time.Duration
	IPLimit       int
	CustomerLimit int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.CustomerLimit > 0)
}

func (p RateLimitPolicy) name() string {
	if n := strings.ToLower(strings.TrimSpace(p.Name)); n != "" {
		return n
	}
	return "default"
}

type rateCounter struct {
	kind  string
	key   string
	limit int
}

// RateLimit enforces fixed-window counters per client IP and per customer.
// The customer counter only applies once Auth has run.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			counters := []rateCounter{
				{kind: "ip", key: clientIP(r), limit: policy.IPLimit},
				{kind: "customer", key: CustomerIDFromContext(ctx), limit: policy.CustomerLimit},
			}
			for _, c := range counters {
				if c.limit <= 0 || c.key == "" {
					continue
				}
				scope := c.kind + ":" + policy.name() + ":" + c.key
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(c.limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(c.limit)-count, 0), 10))
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, c, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, c rateCounter, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"counter":        c.kind,
			"policy":         policy.name(),
			"attempts":       count,
			"limit":          c.limit,
			"window_seconds": int(policy.Window.Seconds()),
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP takes the first valid address from X-Forwarded-For, then
// X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
