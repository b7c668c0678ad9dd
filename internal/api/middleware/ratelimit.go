// ratelimit.go - ограничение частоты запросов к /api/v1/auth по IP клиента.
package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	apierrors "github.com/bigkaa/goartstore/drive-module/internal/api/errors"
)

// rateLimitedTotal - отклонённые запросы.
var rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dm_rate_limited_total",
	Help: "Запросы к аутентификации, отклонённые ограничителем частоты",
})

// IPRateLimiter - token bucket на каждый IP.
// Неактивные IP вытесняются из LRU по TTL.
type IPRateLimiter struct {
	// mu делает поиск и создание limiter атомарными
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter создаёт ограничитель: perMinute запросов в минуту, burst подряд.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](10000, nil, 10*time.Minute),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
	}
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters.Get(ip); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(ip, lim)
	return lim
}

// Allow сообщает, можно ли обработать запрос с этого IP.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.limiter(ip).Allow()
}

// Middleware отвечает 429 с Retry-After при превышении лимита.
func (l *IPRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				rateLimitedTotal.Inc()
				retry := max(int(math.Round(1/float64(l.limit))), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				apierrors.TooManyRequests(w, "слишком много запросов, повторите позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP - IP из RemoteAddr. X-Forwarded-For учитывается только за
// доверенным прокси (DM_TRUST_PROXY), тогда RemoteAddr переписывает chi RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
