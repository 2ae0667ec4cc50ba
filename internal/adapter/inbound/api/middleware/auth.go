package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jonny/kube-actions/pkg/apierror"
)

// BearerAuth returns middleware that validates a Bearer token in the Authorization header.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierror.Write(w, apierror.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierror.Write(w, apierror.Unauthorized("invalid authorization header format"))
				return
			}

			token := strings.TrimSpace(parts[1])
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				apierror.Write(w, apierror.Unauthorized("invalid bearer token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
