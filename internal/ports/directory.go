package ports

import "context"

// Directory lists broker resources through the management API. Listing failures
// yield empty results rather than errors.
type Directory interface {
	ListIdentities(ctx context.Context) []string
	ListTopics(ctx context.Context) []string
}
