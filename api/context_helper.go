package api

import (
	"context"
	"time"
)

// QueryTimeout bounds a single database query issued from a handler
const QueryTimeout = 10 * time.Second

// WithQueryTimeout derives a context with the query timeout applied
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}
