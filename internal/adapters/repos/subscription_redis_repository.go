package repos

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisSubscriptionRepository keeps the topics of an identity in a Redis set.
type RedisSubscriptionRepository struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSubscriptionRepository(client redis.Cmdable, prefix string) *RedisSubscriptionRepository {
	return &RedisSubscriptionRepository{
		client: client,
		prefix: prefix,
	}
}

// Find returns the topics sorted by name; sets carry no insertion order.
func (r *RedisSubscriptionRepository) Find(ctx context.Context, identity string) ([]string, error) {
	topics, err := r.client.SMembers(ctx, r.key(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions of %q: %w", identity, err)
	}

	slices.Sort(topics)

	return topics, nil
}

func (r *RedisSubscriptionRepository) Save(ctx context.Context, identity, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}

	if err := r.client.SAdd(ctx, r.key(identity), topic).Err(); err != nil {
		return fmt.Errorf("failed to save subscription of %q to %q: %w", identity, topic, err)
	}

	return nil
}

func (r *RedisSubscriptionRepository) key(identity string) string {
	return r.prefix + identity
}
