package session

import (
	"context"

	"github.com/madisonwongtx/producktive/store"
)

type contextKey struct{}

// NewContext attaches the resolved session for downstream handlers.
func NewContext(ctx context.Context, s *store.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session placed on the context by the gate.
func FromContext(ctx context.Context) (*store.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*store.Session)
	return s, ok
}
