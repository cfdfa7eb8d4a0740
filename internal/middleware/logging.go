package middleware

import (
	"net/http"
	"time"

	"github.com/soaringjerry/synap-insights/pkg/logger"
)

// RequestLogger logs one line per request once the handler returns.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", rec.status),
				logger.Int("bytes", rec.bytes),
				logger.Duration("duration", time.Since(start)),
			}
			if rec.status >= http.StatusInternalServerError {
				log.Error(r.Context(), "request", fields...)
				return
			}
			log.Info(r.Context(), "request", fields...)
		})
	}
}
