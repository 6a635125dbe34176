package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// AttachRequestMetadata echoes the chi request id back to the client and
// carries the idempotency key in the request context.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set(HeaderXRequestID, requestID)
		}

		ctx := r.Context()
		if key := r.Header.Get(HeaderXIdempotencyKey); key != "" {
			ctx = context.WithValue(ctx, contextKeyIdempotencyKey, key)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
