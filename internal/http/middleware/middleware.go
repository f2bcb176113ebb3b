// Package middleware holds the net/http middleware shared by every route.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/utils/requestid"
	"github.com/aanand-mishra/students-form/internal/utils/response"
)

// AdminHeader carries the admin password on admin routes.
const AdminHeader = "X-Admin-Password"

// Chain applies mws to h so that the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recovery turns a panic into a 500 instead of a dropped connection.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						slog.Any("error", err),
						slog.String("stack", string(debug.Stack())),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("request_id", requestid.From(r.Context())),
					)
					response.WriteJSON(w, http.StatusInternalServerError, response.Response{
						Status: response.StatusError,
						Code:   string(apperr.CodeInternal),
						Error:  "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID reuses the client's X-Request-ID or makes a new one, stores it
// in the request context and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestid.Header)
		if id == "" {
			id = requestid.New()
		}
		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(requestid.With(r.Context(), id)))
	})
}

// Logger writes one line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", requestid.From(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// RequireAdmin rejects requests whose X-Admin-Password header is refused by
// check.
func RequireAdmin(check func(password string) error, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(r.Header.Get(AdminHeader)); err != nil {
				log.WarnContext(r.Context(), "admin password mismatch",
					slog.String("request_id", requestid.From(r.Context())),
					slog.String("path", r.URL.Path),
				)
				response.Error(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
