package testutil

import (
	"context"
	"time"

	"seacert/pkg/requestcontext"
)

// Context returns a context pinned to a fixed clock and populated with actor
// and client metadata, so service tests exercise the same request-scoped
// values the middleware chain would set.
func Context(at time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithActor(ctx, "test-operator", "Test Operator")
	ctx = requestcontext.WithClientMetadata(ctx, "192.0.2.10", "seacert-tests/1.0")
	return requestcontext.WithRequestID(ctx, "test-request")
}
