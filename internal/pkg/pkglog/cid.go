package pkglog

import "context"

type correlationIDKey struct{}

// GetCorrelationID returns the correlation ID stored in the context, or "".
//
// The router sets it early in the request lifecycle so every log record of a
// request, including generator warnings, can be joined on it.
func GetCorrelationID(ctx context.Context) string {
	cid, _ := ctx.Value(correlationIDKey{}).(string)
	return cid
}

// SetCorrelationID stores a correlation ID into the context.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cid)
}
