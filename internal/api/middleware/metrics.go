// metrics.go - HTTP-метрики Prometheus: dm_http_requests_total,
// dm_http_request_duration_seconds. Идентификаторы в путях заменяются на {id}.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Drive Module",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Drive Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware считает запросы и их длительность по нормализованному пути.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

var authRoutes = map[string]bool{
	"signup":          true,
	"signin":          true,
	"verify":          true,
	"resend-code":     true,
	"forgot-password": true,
	"reset-password":  true,
	"signout":         true,
	"me":              true,
}

// fileSubresources - допустимые суффиксы после {id}.
var fileSubresources = map[string]bool{
	"share":    true,
	"download": true,
	"content":  true,
	"preview":  true,
}

// normalizePath заменяет идентификатор файла на {id}:
// /api/v1/files/dev-file-3/download → /api/v1/files/{id}/download,
// /files/<uuid>/preview → /files/{id}/preview.
// Неизвестные пути сворачиваются в "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/files", "/api/v1/usage", "/api/v1/openapi.yaml":
		return path
	}
	if authRoutes[strings.TrimPrefix(path, "/api/v1/auth/")] {
		return path
	}

	for _, prefix := range []string{"/api/v1/files/", "/files/"} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}
		_, sub, hasSub := strings.Cut(rest, "/")
		switch {
		case !hasSub:
			return prefix + "{id}"
		case fileSubresources[sub]:
			return prefix + "{id}/" + sub
		}
	}
	return "other"
}
