package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusRecorder remembers the status and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger logs one line per request. Server errors log at error level,
// everything else at info; /health is logged at debug to keep probes quiet.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("latency", time.Since(start)),
				zap.String("correlation_id", GetCorrelationID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			}
			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case r.URL.Path == "/health":
				logger.Debug("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}
