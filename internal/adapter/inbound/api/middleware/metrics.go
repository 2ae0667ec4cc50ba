package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jonny/kube-actions/internal/metrics"
)

// Metrics records request count and latency per route template. It must be
// installed with Router.Use so the matched route is available.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		// Route templates keep label cardinality bounded.
		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil && tpl != "" {
				path = tpl
			}
		}
		metrics.ObserveHTTP(r.Method, path, wrapped.statusCode, time.Since(start))
	})
}
