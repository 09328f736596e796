package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestMetrics はHTTPメトリクスの記録先。
type RequestMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(route string, duration time.Duration)
}

// NewMetricsMiddleware はステータスコードとルート別レイテンシを記録するミドルウェアを返す。
// ルートはchiのパターン（例: /api/v1/books/{id}）で記録する。
func NewMetricsMiddleware(m RequestMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.RecordHTTPStatus(rec.statusCode)
			m.RecordRequestLatency(route, time.Since(start))
		})
	}
}
