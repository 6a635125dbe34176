package middlewares

import "context"

// contextKey keeps this package's context values from colliding with others
// that use the same underlying string.
type contextKey string

const (
	HeaderXRequestID      = "X-Request-ID"
	HeaderXIdempotencyKey = "X-Idempotency-Key"
	HeaderXAccountID      = "X-Account-ID"

	contextKeyIdempotencyKey contextKey = "idempotency_key"
	contextKeyAccountID      contextKey = "account_id"
)

// IdempotencyKey returns the key attached by AttachRequestMetadata, or "".
func IdempotencyKey(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyIdempotencyKey).(string)
	return v
}

// AccountID returns the account attached by RequireAccount, or "".
func AccountID(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyAccountID).(string)
	return v
}

// WithAccountID is used by tests that call handlers without the middleware.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, contextKeyAccountID, accountID)
}
