package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds a single store read or write
	DefaultTimeout = 10 * time.Second

	// LongTimeout is for plan builds and workbook exports that touch a whole month
	LongTimeout = 30 * time.Second

	// ShortTimeout is for quick operations (cache lookups, rate limit counters)
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context with long timeout for month-wide operations
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}
