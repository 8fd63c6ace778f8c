package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"taskmaster/internal/logger"
	"taskmaster/internal/metrics"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	routeKey
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wrote {
		s.status = http.StatusOK
		s.wrote = true
	}
	return s.ResponseWriter.Write(b)
}

// route is filled in by withRoute so the outer middleware can label metrics
// with the matched pattern rather than the raw path.
type route struct {
	pattern string
}

func withRoute(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt, ok := r.Context().Value(routeKey).(*route); ok {
			rt.pattern = pattern
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestLogger(r *http.Request, log *logger.Logger) *logger.Logger {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return log.WithRequestID(id)
	}
	return log
}

// observe recovers panics, logs every request and records metrics when m is
// not nil.
func (h *Handlers) observe(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rt := &route{pattern: "unmatched"}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(context.WithValue(r.Context(), routeKey, rt))

		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				requestLogger(r, h.log).Errorw("Handler panicked", "path", r.URL.Path, "panic", v)
				if !rec.wrote {
					h.error(rec, "Internal server error", http.StatusInternalServerError)
				} else {
					rec.status = http.StatusInternalServerError
				}
			}

			elapsed := time.Since(start)
			id, _ := r.Context().Value(requestIDKey).(string)
			h.log.LogHTTPRequest(id, r.Method, r.URL.Path, rec.status, float64(elapsed.Microseconds())/1000)

			if m != nil {
				m.RequestsTotal.WithLabelValues(r.Method, rt.pattern, strconv.Itoa(rec.status)).Inc()
				m.RequestDuration.WithLabelValues(r.Method, rt.pattern).Observe(elapsed.Seconds())
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
