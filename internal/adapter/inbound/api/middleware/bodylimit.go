package middleware

import (
	"fmt"
	"net/http"

	"github.com/jonny/kube-actions/pkg/apierror"
)

// MaxBodyBytes caps the request body. Requests that declare a larger
// Content-Length are refused up front; chunked bodies fail on read with
// *http.MaxBytesError.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				apierror.Write(w, apierror.TooLarge(fmt.Sprintf("request body exceeds %d bytes", limit)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
