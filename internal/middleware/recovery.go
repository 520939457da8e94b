package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// WithRecovery returns middleware that converts handler panics into 500
// responses instead of tearing down the connection. The panic value and
// stack are logged through the request-scoped logger so they carry the
// trace ID when tracing is enabled.
func WithRecovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					LoggerFromRequest(r, logger).Error("handler panic",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
