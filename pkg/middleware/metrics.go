package middleware

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"polls/pkg/metrics"
)

// Metrics counts requests per route template, so /posts/{post_id} is one series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		done := metrics.Since(metrics.HTTPDuration.WithLabelValues(route, r.Method))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		done()
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
