package logger

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code and response size
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytesOut   int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.bytesOut += size
	return size, err
}

// NewMiddleware logs every request served by the operations endpoint.
// Successful requests are logged at debug so frequent metric scrapes stay quiet.
func NewMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			var level slog.Level
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case rw.statusCode >= http.StatusBadRequest:
				level = slog.LevelWarn
			default:
				level = slog.LevelDebug
			}

			logger.LogAttrs(r.Context(), level, "HTTP",
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.Int("status", rw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes_out", rw.bytesOut),
			)
		})
	}
}
