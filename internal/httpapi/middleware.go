// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/selfreg/selfreg/internal/blob"
)

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument logs every request and records it in the request counter.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if s.metrics != nil {
			s.metrics.RequestsTotal.
				WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
				Inc()
		}
	})
}

// limitBody caps the request body. Uploads get the photo limit plus
// slack for multipart framing; anything larger fails before parsing.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, blob.MaxPhotoBytes+64*1024)
		next.ServeHTTP(w, r)
	})
}
