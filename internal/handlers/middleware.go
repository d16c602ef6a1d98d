package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

// Headers carrying request and session identifiers
const (
	RequestIDHeader = "X-Request-ID"
	SessionIDHeader = "X-Session-ID"
)

// RequestID tags every request with an ID, reusing the client's when sent,
// and stores it in the request context for the logger
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logging.WithRequestID(r.Context(), id)
		if session := r.Header.Get(SessionIDHeader); session != "" {
			ctx = logging.WithSessionID(ctx, session)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// unmatchedRoute labels requests that reached no registered route
const unmatchedRoute = "unmatched"

// routeLabel returns the mux path template of the request's route, so
// /api/history/7 and /api/history/8 share one metric series
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return unmatchedRoute
}

// Instrument records request counts and durations per route template
func Instrument(m *metrics.Collector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := routeLabel(r)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			m.ActiveConnections.Inc()
			defer m.ActiveConnections.Dec()

			next.ServeHTTP(rec, r)

			m.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			m.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))
		})
	}
}
