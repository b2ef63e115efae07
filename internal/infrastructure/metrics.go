package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	metricsNamespace = "amqp_messenger"
)

type (
	// Metrics records messaging activity. It also observes the queue package so
	// reconnects and conflict recoveries are counted.
	Metrics interface {
		queue.Observer

		RecordPublish(ctx context.Context, kind string, success bool, duration time.Duration)
		RecordDelivery(ctx context.Context, kind string)
		RecordAdminOperation(ctx context.Context, operation, outcome string)
		RecordDirectoryQuery(ctx context.Context, resource string, success bool, duration time.Duration)
		RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	OTELMetrics struct {
		meterProvider *sdkmetric.MeterProvider
		meter         metric.Meter
		logger        Logger

		reconnectTotal         metric.Int64Counter
		conflictRecoveryTotal  metric.Int64Counter
		publishTotal           metric.Int64Counter
		publishDuration        metric.Float64Histogram
		deliveryTotal          metric.Int64Counter
		adminOperationTotal    metric.Int64Counter
		directoryQueryTotal    metric.Int64Counter
		directoryQueryDuration metric.Float64Histogram
		httpRequestTotal       metric.Int64Counter
		httpRequestDuration    metric.Float64Histogram
	}
)

func NewMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (Metrics, error) {
	if !cfg.Telemetry.Metrics.Enabled {
		logger.Info().Msg("metrics disabled, using NoOp implementation")

		return &NoOpMetrics{}, nil
	}

	return NewOTELMetrics(ctx, cfg, logger)
}

func NewOTELMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (*OTELMetrics, error) {
	endpoint := fmt.Sprintf("%s:%s", cfg.Telemetry.OtelGRPCHost, cfg.Telemetry.OtelGRPCPort)

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTEL collector: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.AppConfig.ServiceName),
			semconv.ServiceVersionKey.String(cfg.AppConfig.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(cfg.AppConfig.CommitSHA),
			semconv.DeploymentEnvironmentKey.String(cfg.AppConfig.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	readerOpts := make([]sdkmetric.PeriodicReaderOption, 0, 1)
	if cfg.Telemetry.Metrics.ExportInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Telemetry.Metrics.ExportInterval))
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)

	provider, err := newOTELMetrics(meterProvider, cfg.AppConfig.ServiceVersion, logger.Component("metrics"))
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("otel_endpoint", endpoint).
		Msg("OTEL metrics provider initialized successfully")

	return provider, nil
}

func newOTELMetrics(meterProvider *sdkmetric.MeterProvider, version string, logger Logger) (*OTELMetrics, error) {
	provider := &OTELMetrics{
		meterProvider: meterProvider,
		meter: meterProvider.Meter(
			metricsNamespace,
			metric.WithInstrumentationVersion(version),
		),
		logger: logger,
	}

	if err := provider.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return provider, nil
}

func (om *OTELMetrics) initializeMetrics() error {
	var err error

	om.reconnectTotal, err = om.meter.Int64Counter(
		"broker_reconnects_total",
		metric.WithDescription("Total number of broker reconnect sequences"),
		metric.WithUnit("{reconnect}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create broker_reconnects_total counter: %w", err)
	}

	om.conflictRecoveryTotal, err = om.meter.Int64Counter(
		"conflict_recoveries_total",
		metric.WithDescription("Total number of destructive precondition conflict recoveries"),
		metric.WithUnit("{recovery}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create conflict_recoveries_total counter: %w", err)
	}

	om.publishTotal, err = om.meter.Int64Counter(
		"messages_published_total",
		metric.WithDescription("Total number of published messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create messages_published_total counter: %w", err)
	}

	om.publishDuration, err = om.meter.Float64Histogram(
		"publish_duration_seconds",
		metric.WithDescription("Publish duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create publish_duration_seconds histogram: %w", err)
	}

	om.deliveryTotal, err = om.meter.Int64Counter(
		"messages_delivered_total",
		metric.WithDescription("Total number of messages handed to a handler"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create messages_delivered_total counter: %w", err)
	}

	om.adminOperationTotal, err = om.meter.Int64Counter(
		"admin_operations_total",
		metric.WithDescription("Total number of administrative operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create admin_operations_total counter: %w", err)
	}

	om.directoryQueryTotal, err = om.meter.Int64Counter(
		"directory_queries_total",
		metric.WithDescription("Total number of management API listings"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create directory_queries_total counter: %w", err)
	}

	om.directoryQueryDuration, err = om.meter.Float64Histogram(
		"directory_query_duration_seconds",
		metric.WithDescription("Management API listing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create directory_query_duration_seconds histogram: %w", err)
	}

	om.httpRequestTotal, err = om.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of ops server HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	om.httpRequestDuration, err = om.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Ops server HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	return nil
}

func (om *OTELMetrics) Reconnected(ctx context.Context, err error) {
	om.reconnectTotal.Add(ctx, 1,
		metric.WithAttributes(
			StatusAttr(statusOf(err == nil)),
		),
	)
}

func (om *OTELMetrics) ConflictRecovered(ctx context.Context, kind queue.ResourceKind, err error) {
	om.conflictRecoveryTotal.Add(ctx, 1,
		metric.WithAttributes(
			ResourceKindAttr(string(kind)),
			StatusAttr(statusOf(err == nil)),
		),
	)
}

func (om *OTELMetrics) RecordPublish(ctx context.Context, kind string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		MessageKindAttr(kind),
		StatusAttr(statusOf(success)),
	)

	om.publishTotal.Add(ctx, 1, attrs)
	om.publishDuration.Record(ctx, duration.Seconds(), attrs)
}

func (om *OTELMetrics) RecordDelivery(ctx context.Context, kind string) {
	om.deliveryTotal.Add(ctx, 1,
		metric.WithAttributes(
			MessageKindAttr(kind),
		),
	)
}

func (om *OTELMetrics) RecordAdminOperation(ctx context.Context, operation, outcome string) {
	om.adminOperationTotal.Add(ctx, 1,
		metric.WithAttributes(
			OperationAttr(operation),
			OutcomeAttr(outcome),
		),
	)
}

func (om *OTELMetrics) RecordDirectoryQuery(ctx context.Context, resource string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		DirectoryResourceAttr(resource),
		StatusAttr(statusOf(success)),
	)

	om.directoryQueryTotal.Add(ctx, 1, attrs)
	om.directoryQueryDuration.Record(ctx, duration.Seconds(), attrs)
}

func (om *OTELMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		HTTPMethodAttr(method),
		HTTPPathAttr(path),
		HTTPStatusCodeAttr(statusCode),
	)

	om.httpRequestTotal.Add(ctx, 1, attrs)
	om.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

func (om *OTELMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (om *OTELMetrics) Shutdown(ctx context.Context) error {
	if err := om.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}

func statusOf(success bool) string {
	if success {
		return "success"
	}

	return "error"
}
