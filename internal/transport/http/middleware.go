package http

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// WithLogging логирует каждый запрос с методом, путём, статусом и длительностью.
func WithLogging(logger *log.Entry, next http.Handler) http.Handler {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

// WithRecover перехватывает панику обработчика и отвечает 500 вместо обрыва соединения.
func WithRecover(logger *log.Entry, next http.Handler) http.Handler {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithFields(log.Fields{
					"panic": rec,
					"path":  r.URL.Path,
				}).Error("handler panic")
				writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
