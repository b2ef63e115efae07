package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*OTELMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := newOTELMetrics(provider, "test", Logger{Logger: zerolog.Nop()})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = metrics.Shutdown(context.Background())
	})

	return metrics, reader
}

// distinct returns the equivalence key of the attribute set built from kvs.
func distinct(kvs ...attribute.KeyValue) attribute.Distinct {
	set := attribute.NewSet(kvs...)

	return set.Equivalent()
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Distinct]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	points := map[attribute.Distinct]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

			for _, dp := range sum.DataPoints {
				points[dp.Attributes.Equivalent()] = dp.Value
			}
		}
	}

	return points
}

func TestNewMetrics_DisabledReturnsNoOp(t *testing.T) {
	t.Parallel()

	metrics, err := NewMetrics(context.Background(), config.ServiceConfig{}, Logger{Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.IsType(t, &NoOpMetrics{}, metrics)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, metrics.Shutdown(context.Background()))
}

func TestOTELMetrics_ObservesQueueEvents(t *testing.T) {
	t.Parallel()

	metrics, reader := newTestMetrics(t)
	ctx := context.Background()

	var observer queue.Observer = metrics

	observer.Reconnected(ctx, nil)
	observer.Reconnected(ctx, errors.New("refused"))
	observer.ConflictRecovered(ctx, queue.ResourceExchange, nil)
	observer.ConflictRecovered(ctx, queue.ResourceExchange, nil)

	reconnects := collectSum(t, reader, "broker_reconnects_total")
	assert.Equal(t, int64(1), reconnects[distinct(StatusAttr("success"))])
	assert.Equal(t, int64(1), reconnects[distinct(StatusAttr("error"))])

	recoveries := collectSum(t, reader, "conflict_recoveries_total")
	assert.Equal(t, int64(2), recoveries[distinct(
		ResourceKindAttr("exchange"),
		StatusAttr("success"),
	)])
}

func TestOTELMetrics_RecordsMessaging(t *testing.T) {
	t.Parallel()

	metrics, reader := newTestMetrics(t)
	ctx := context.Background()

	metrics.RecordPublish(ctx, "direct", true, 5*time.Millisecond)
	metrics.RecordPublish(ctx, "topic", false, time.Millisecond)
	metrics.RecordDelivery(ctx, "topic")
	metrics.RecordDelivery(ctx, "topic")
	metrics.RecordAdminOperation(ctx, "create_identity", "created")
	metrics.RecordDirectoryQuery(ctx, "queues", true, time.Millisecond)
	metrics.RecordHTTPRequest(ctx, http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	published := collectSum(t, reader, "messages_published_total")
	assert.Equal(t, int64(1), published[distinct(MessageKindAttr("direct"), StatusAttr("success"))])
	assert.Equal(t, int64(1), published[distinct(MessageKindAttr("topic"), StatusAttr("error"))])

	delivered := collectSum(t, reader, "messages_delivered_total")
	assert.Equal(t, int64(2), delivered[distinct(MessageKindAttr("topic"))])

	admin := collectSum(t, reader, "admin_operations_total")
	assert.Equal(t, int64(1), admin[distinct(OperationAttr("create_identity"), OutcomeAttr("created"))])

	queries := collectSum(t, reader, "directory_queries_total")
	assert.Equal(t, int64(1), queries[distinct(DirectoryResourceAttr("queues"), StatusAttr("success"))])

	requests := collectSum(t, reader, "http_requests_total")
	assert.Equal(t, int64(1), requests[distinct(
		HTTPMethodAttr(http.MethodGet),
		HTTPPathAttr("/health"),
		HTTPStatusCodeAttr(http.StatusOK),
	)])
}
