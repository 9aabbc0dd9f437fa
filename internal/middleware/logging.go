package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"plateserver/internal/logger"
	"plateserver/internal/metrics"
)

// RequestLogger logs every request with its status and duration and records
// it in m when m is not nil. Server errors are logged at error level.
func RequestLogger(logger *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			if m != nil {
				m.ObserveRequest(r.Method, route, status, elapsed)
			}

			reqID := chimiddleware.GetReqID(r.Context())
			if status >= http.StatusInternalServerError {
				logger.Error("%s %s -> %d (%s) [%s]", r.Method, r.URL.Path, status, elapsed, reqID)
				return
			}
			logger.Info("%s %s -> %d (%s) [%s]", r.Method, r.URL.Path, status, elapsed, reqID)
		})
	}
}
