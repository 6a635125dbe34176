package middlewares

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RequireAccount scopes the request to the account named by X-Account-ID.
// Authenticating that header is the job of the proxy in front of us.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := strings.TrimSpace(r.Header.Get(HeaderXAccountID))
		if accountID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": HeaderXAccountID + " header is required",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
	})
}
