package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/pressmesh/reconcile/internal/auth"
)

// responseWriter captures HTTP status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Printf("[HTTP] %s %s %d %s from %s", r.Method, r.URL.Path, rw.statusCode, duration, r.RemoteAddr)
	})
}

// ReviewerMiddleware lifts the X-Reviewer-Id header into the request context
// so review transitions can attribute the acting reviewer. The identity is
// not verified; authentication lives outside this service.
func ReviewerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reviewer := r.Header.Get("X-Reviewer-Id"); reviewer != "" {
			r = r.WithContext(auth.ContextWithReviewerID(r.Context(), reviewer))
		}
		next.ServeHTTP(w, r)
	})
}
