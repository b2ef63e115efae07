package ports

import "context"

// BackgroundProcessor is a long-running task that stops when ctx is cancelled.
type BackgroundProcessor interface {
	Start(ctx context.Context) error
}
