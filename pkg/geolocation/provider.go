package geolocation

import "context"

// Provider interface defines the methods for location providers
type Provider interface {
	// GetPosition acquires a single position. It blocks until a position is
	// available, the context is cancelled, or the source fails.
	GetPosition(ctx context.Context, opts Options) (Position, error)

	// Watch starts a continuous position stream. The returned channel is
	// closed when the context is cancelled or the source fails; a failure
	// is delivered as a final Update carrying the error.
	Watch(ctx context.Context, opts Options) (<-chan Update, error)

	// Close releases any resources held by the provider.
	Close() error
}
