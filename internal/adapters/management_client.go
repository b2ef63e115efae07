package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/infrastructure"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"github.com/sony/gobreaker"
)

const (
	resourceQueues    = "queues"
	resourceExchanges = "exchanges"
	exchangeFanout    = "fanout"
	overviewPath      = "/api/overview"
)

type (
	// ManagementClient lists identities and topics through the broker's management HTTP API.
	ManagementClient struct {
		client         *resty.Client
		circuitBreaker *gobreaker.CircuitBreaker
		logger         infrastructure.Logger
		metrics        infrastructure.Metrics
		vhostPath      string
	}

	// CredentialsSource returns the account used for the next management API request.
	CredentialsSource func() (username, password string)

	ManagementOption func(*ManagementClient)

	managementResource struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
)

func NewManagementClient(
	cfg config.ManagementConfig,
	username, password string,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	opts ...ManagementOption,
) *ManagementClient {
	client := resty.New()

	client.SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetBasicAuth(username, password).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetHeader("Accept", "application/json")

	logger = logger.Component("directory")

	cbSettings := gobreaker.Settings{
		Name:        "management-api",
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	vhostPath := cfg.VhostPath
	if vhostPath == "" {
		vhostPath = "%2F"
	}

	c := &ManagementClient{
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
		metrics:        metrics,
		vhostPath:      vhostPath,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithCredentialsSource replaces the fixed account with one read before every request.
func WithCredentialsSource(source CredentialsSource) ManagementOption {
	return func(c *ManagementClient) {
		c.client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			username, password := source()
			r.SetBasicAuth(username, password)

			return nil
		})
	}
}

// ListIdentities returns the sorted queue names that are neither reserved nor topic inboxes.
func (c *ManagementClient) ListIdentities(ctx context.Context) []string {
	queues := c.listResources(ctx, resourceQueues)

	identities := lo.FilterMap(queues, func(q managementResource, _ int) (string, bool) {
		return q.Name, q.Name != "" &&
			!strings.HasPrefix(q.Name, domain.ReservedPrefix) &&
			!domain.IsTopicInbox(q.Name)
	})

	slices.Sort(identities)

	return identities
}

// ListTopics returns the sorted names of the non-reserved fanout exchanges.
func (c *ManagementClient) ListTopics(ctx context.Context) []string {
	exchanges := c.listResources(ctx, resourceExchanges)

	topics := lo.FilterMap(exchanges, func(e managementResource, _ int) (string, bool) {
		return e.Name, e.Type == exchangeFanout && !domain.IsReserved(e.Name)
	})

	slices.Sort(topics)

	return topics
}

// Ping checks that the management API answers.
func (c *ManagementClient) Ping(ctx context.Context) error {
	_, err := c.circuitBreaker.Execute(func() (any, error) {
		return c.get(ctx, overviewPath)
	})

	return err
}

func (c *ManagementClient) listResources(ctx context.Context, resource string) []managementResource {
	startTime := time.Now()

	path := fmt.Sprintf("/api/%s/%s", resource, c.vhostPath)

	result, err := c.circuitBreaker.Execute(func() (any, error) {
		body, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}

		var resources []managementResource
		if err := json.Unmarshal(body, &resources); err != nil {
			return nil, fmt.Errorf("failed to decode %s listing: %w", resource, err)
		}

		return resources, nil
	})

	c.metrics.RecordDirectoryQuery(ctx, resource, err == nil, time.Since(startTime))

	if err != nil {
		event := c.logger.Warn().Err(err).Str("resource", resource)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			event = event.Bool("circuit_open", true)
		}

		event.Msg("failed to list broker resources")

		return []managementResource{}
	}

	return result.([]managementResource)
}

func (c *ManagementClient) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("management API request %s failed: %w", path, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("management API request %s returned HTTP %d", path, resp.StatusCode())
	}

	return resp.Body(), nil
}
