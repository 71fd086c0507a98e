package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/metrics"
)

// requestMetrics records latency per route pattern and logs one line
// per request. Route patterns keep the label cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())
		logger.L.Info("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"durationMs", elapsed.Milliseconds(),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}
