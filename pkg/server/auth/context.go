package auth

import (
	"context"

	twitter "github.com/g8rswimmer/go-twitter/v2"
)

type clientContextKey struct{}

// WithClient adds the authorized X API client to the context
func WithClient(ctx context.Context, client *twitter.Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, client)
}

// ClientFromContext extracts the authorized X API client from the context
func ClientFromContext(ctx context.Context) (*twitter.Client, bool) {
	client, ok := ctx.Value(clientContextKey{}).(*twitter.Client)
	return client, ok
}
