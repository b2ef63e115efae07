package ports

import "context"

// SubscriptionRepository persists the topics an identity subscribed to.
type SubscriptionRepository interface {
	// Find returns the stored topics of identity, or none when nothing was saved.
	Find(ctx context.Context, identity string) ([]string, error)

	// Save records topic for identity. Saving a stored topic again is a no-op.
	Save(ctx context.Context, identity, topic string) error
}
