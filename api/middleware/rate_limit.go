package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/librarydesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
)

const (
	rateLimitWindow     = time.Minute
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepTrigger = 4096
)

// WindowLimiter is the shared fixed-window counter used when several API
// instances sit behind one Redis.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitOptions configures RateLimit. RPS <= 0 disables limiting.
type RateLimitOptions struct {
	RPS    float64
	Burst  int
	Shared WindowLimiter
}

// RateLimit throttles each client identity. With a shared limiter the budget
// is RPS*60 requests per minute across instances; otherwise each process
// keeps a token bucket per client.
func RateLimit(opts RateLimitOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	if opts.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Burst <= 0 {
		opts.Burst = int(math.Ceil(opts.RPS))
	}
	local := newClientLimiters(rate.Limit(opts.RPS), opts.Burst)
	windowLimit := int64(math.Ceil(opts.RPS * rateLimitWindow.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIDFromContext(r.Context())
			if client == "" {
				client = clientIP(r)
			}

			if opts.Shared != nil {
				allowed, _, err := opts.Shared.FixedWindowAllow(r.Context(), client, windowLimit, rateLimitWindow)
				if err != nil {
					logError(r.Context(), logg, "rate limit check failed", err)
					next.ServeHTTP(w, r)
					return
				}
				if !allowed {
					reject(w, r, logg, rateLimitWindow)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			reservation := local.get(client).Reserve()
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				reject(w, r, logg, delay)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, logg *logger.Logger, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	now     func() time.Time
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		limit:   limit,
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

func (c *clientLimiters) get(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.clients) >= limiterSweepTrigger {
		for id, entry := range c.clients {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(c.clients, id)
			}
		}
	}

	entry, ok := c.clients[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}
