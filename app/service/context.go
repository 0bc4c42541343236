package service

import "context"

type usernameKey struct{}

// WithUsername stores the verified caller username in the context.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

// UsernameFromContext extracts the caller username from the context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(usernameKey{})
	if value == nil {
		return "", false
	}
	username, ok := value.(string)
	return username, ok && username != ""
}
