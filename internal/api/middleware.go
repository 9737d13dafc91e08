package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/fluxrx/internal/observability"
	"github.com/wonny/fluxrx/pkg/httputil"
	"github.com/wonny/fluxrx/pkg/logger"
	"github.com/wonny/fluxrx/pkg/redis"
)

// =============================================================================
// Rate limiting
// =============================================================================

// Limiter decides whether a client may issue another request
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// LocalLimiter token bucket per client (단일 인스턴스)
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLocalLimiter creates a per-client token bucket limiter
func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Allow consumes one token for client
func (l *LocalLimiter) Allow(_ context.Context, client string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[client] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow(), nil
}

// RedisLimiter sliding window shared across instances
type RedisLimiter struct {
	limiter *redis.RateLimiter
	limit   int
}

// NewRedisLimiter allows limit requests per client per second
func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{
		limiter: redis.NewRateLimiter(client, "fluxrx"),
		limit:   limit,
	}
}

// Allow checks the shared window for client
func (l *RedisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, redis.APIRateLimit(client, l.limit))
	return allowed, err
}

// clientKey identifies the caller by remote IP
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware rejects requests over the limit with 429.
// Redis 오류 시 요청 허용 (경고 로그)
func rateLimitMiddleware(limiter Limiter, metrics *observability.Metrics, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientKey(r))
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable, allowing request")
				allowed = true
			}
			if !allowed {
				if metrics != nil {
					metrics.RateLimitDenied.Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(1))
				httputil.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// Logging / metrics / recovery
// =============================================================================

// statusRecorder captures the response status
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// routeName returns the mux path template (라벨 카디널리티 제한)
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// loggingMiddleware logs and instruments HTTP requests
func loggingMiddleware(log *logger.Logger, metrics *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := routeName(r)
			metrics.ObserveHTTP(route, rec.status, start)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"route":    route,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
