package infrastructure

import (
	"context"
	"net/http"
	"time"

	"github.com/architeacher/amqp-messenger/pkg/queue"
)

type NoOpMetrics struct{}

func (n *NoOpMetrics) Reconnected(_ context.Context, _ error) {
}

func (n *NoOpMetrics) ConflictRecovered(_ context.Context, _ queue.ResourceKind, _ error) {
}

func (n *NoOpMetrics) RecordPublish(_ context.Context, _ string, _ bool, _ time.Duration) {
}

func (n *NoOpMetrics) RecordDelivery(_ context.Context, _ string) {
}

func (n *NoOpMetrics) RecordAdminOperation(_ context.Context, _, _ string) {
}

func (n *NoOpMetrics) RecordDirectoryQuery(_ context.Context, _ string, _ bool, _ time.Duration) {
}

func (n *NoOpMetrics) RecordHTTPRequest(_ context.Context, _, _ string, _ int, _ time.Duration) {
}

func (n *NoOpMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (n *NoOpMetrics) Shutdown(_ context.Context) error {
	return nil
}
