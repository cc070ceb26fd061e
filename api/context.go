package api

import "context"

type contextKey int

const (
	bearerTokenKey contextKey = iota
	requestIDKey
	localeKey
)

// WithBearerToken overrides the gateway's token source for requests made
// with the returned context. The bootstrapper uses this to resolve an
// identity with a token that is not yet installed in the session store.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

// BearerTokenFromContext returns the explicit token override, if any.
func BearerTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerTokenKey).(string)
	return token, ok
}

// WithRequestID pins the tracing ID for requests made with the returned
// context instead of generating one per request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the pinned tracing ID, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithLocale sets the Accept-Language value for requests made with the
// returned context.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

// LocaleFromContext returns the request locale, if any.
func LocaleFromContext(ctx context.Context) (string, bool) {
	locale, ok := ctx.Value(localeKey).(string)
	return locale, ok
}
