package middleware

import (
	"net/http"
	"time"

	"github.com/iudanet/livedesk/internal/server/metrics"
)

// unmatchedRoute метка запросов, не попавших ни в один маршрут
const unmatchedRoute = "unmatched"

// MetricsMiddleware учитывает запросы в метриках по шаблону маршрута ServeMux
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			// ServeMux записывает найденный шаблон в r.Pattern
			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}
			m.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
