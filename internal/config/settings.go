package config

import (
	"time"

	"github.com/architeacher/amqp-messenger/pkg/queue"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

const (
	SubscriptionBackendFile  = "file"
	SubscriptionBackendRedis = "redis"
)

type (
	ServiceConfig struct {
		AppConfig     AppConfig           `json:"app_config"`
		Logging       LoggingConfig       `json:"logging"`
		Telemetry     Telemetry           `json:"telemetry"`
		SecretStorage SecretStorageConfig `json:"secret_storage"`
		OpsServer     OpsServerConfig     `json:"ops_server"`
		Broker        BrokerConfig        `json:"broker"`
		Management    ManagementConfig    `json:"management"`
		Provisioning  ProvisioningConfig  `json:"provisioning"`
		Backoff       BackoffConfig       `json:"backoff"`
		Subscriptions SubscriptionsConfig `json:"subscriptions"`
		Cache         CacheConfig         `json:"cache"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"amqp-messenger" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	LoggingConfig struct {
		Level  string `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format string `envconfig:"LOGGING_FORMAT" default:"console" json:"format"`
	}

	Telemetry struct {
		OtelGRPCHost       string `envconfig:"OTEL_HOST" json:"otel_grpc_host"`
		OtelGRPCPort       string `envconfig:"OTEL_PORT" default:"4317" json:"otel_grpc_port"`
		OtelProductCluster string `envconfig:"OTEL_PRODUCT_CLUSTER" json:"otel_product_cluster"`

		Metrics Metrics `json:"metrics"`
	}

	Metrics struct {
		Enabled        bool          `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
		ExportInterval time.Duration `envconfig:"METRICS_EXPORT_INTERVAL" default:"15s" json:"export_interval"`
	}

	SecretStorageConfig struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"" json:"-"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"-"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"amqp-messenger" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    int           `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"0s" json:"poll_interval"`
	}

	OpsServerConfig struct {
		Enabled         bool          `envconfig:"OPS_SERVER_ENABLED" default:"false" json:"enabled"`
		Host            string        `envconfig:"OPS_SERVER_HOST" default:"127.0.0.1" json:"host"`
		Port            int           `envconfig:"OPS_SERVER_PORT" default:"9090" json:"port"`
		ReadTimeout     time.Duration `envconfig:"OPS_SERVER_READ_TIMEOUT" default:"5s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"OPS_SERVER_WRITE_TIMEOUT" default:"10s" json:"write_timeout"`
		ShutdownTimeout time.Duration `envconfig:"OPS_SERVER_SHUTDOWN_TIMEOUT" default:"5s" json:"shutdown_timeout"`
	}

	// BrokerConfig defaults to the broker's stock guest account, which only accepts
	// connections from localhost.
	BrokerConfig struct {
		Scheme         string        `envconfig:"RABBITMQ_SCHEME" default:"amqp" json:"scheme"`
		Host           string        `envconfig:"RABBITMQ_HOST" default:"localhost" json:"host"`
		Port           int           `envconfig:"RABBITMQ_PORT" default:"5672" json:"port"`
		Username       string        `envconfig:"RABBITMQ_USERNAME" default:"guest" json:"username"`
		Password       string        `envconfig:"RABBITMQ_PASSWORD" default:"guest" json:"-"`
		VirtualHost    string        `envconfig:"RABBITMQ_VIRTUAL_HOST" default:"/" json:"virtual_host"`
		ConnectTimeout time.Duration `envconfig:"RABBITMQ_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		Heartbeat      time.Duration `envconfig:"RABBITMQ_HEARTBEAT" default:"60s" json:"heartbeat"`
		PublishTimeout time.Duration `envconfig:"RABBITMQ_PUBLISH_TIMEOUT" default:"3s" json:"publish_timeout"`
	}

	ManagementConfig struct {
		URL            string               `envconfig:"RABBITMQ_MANAGEMENT_URL" default:"http://localhost:15672" json:"url"`
		Username       string               `envconfig:"RABBITMQ_MANAGEMENT_USERNAME" default:"" json:"username"`
		Password       string               `envconfig:"RABBITMQ_MANAGEMENT_PASSWORD" default:"" json:"-"`
		VhostPath      string               `envconfig:"RABBITMQ_MANAGEMENT_VHOST_PATH" default:"%2F" json:"vhost_path"`
		Timeout        time.Duration        `envconfig:"RABBITMQ_MANAGEMENT_TIMEOUT" default:"5s" json:"timeout"`
		MaxRetries     int                  `envconfig:"RABBITMQ_MANAGEMENT_MAX_RETRIES" default:"2" json:"max_retries"`
		RetryWaitTime  time.Duration        `envconfig:"RABBITMQ_MANAGEMENT_RETRY_WAIT_TIME" default:"300ms" json:"retry_wait_time"`
		CircuitBreaker CircuitBreakerConfig `envconfig:"RABBITMQ_MANAGEMENT_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}

	ProvisioningConfig struct {
		RecoveryDelay  time.Duration `envconfig:"PROVISIONING_RECOVERY_DELAY" default:"500ms" json:"recovery_delay"`
		DurableQueues  bool          `envconfig:"PROVISIONING_DURABLE_QUEUES" default:"true" json:"durable_queues"`
		DurableTopics  bool          `envconfig:"PROVISIONING_DURABLE_TOPICS" default:"true" json:"durable_topics"`
		ConsumerPrefix string        `envconfig:"PROVISIONING_CONSUMER_PREFIX" default:"messenger-" json:"consumer_prefix"`
	}

	BackoffConfig struct {
		// BaseDelay is the amount of time to backoff after the first failure.
		BaseDelay time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		// Multiplier is the factor with which to multiply backoffs after a
		// failed retry. Should ideally be greater than 1.
		Multiplier float64 `envconfig:"BACKOFF_MULTIPLIER" default:"1.6" json:"multiplier"`
		// Jitter is the factor with which backoffs are randomized.
		Jitter float64 `envconfig:"BACKOFF_JITTER" default:"0.2" json:"jitter"`
		// MaxDelay is the upper bound of backoff delay.
		MaxDelay time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"30s" json:"max_delay"`
	}

	CircuitBreakerConfig struct {
		MaxRequests uint32        `envconfig:"MAX_REQUESTS" default:"3" json:"max_requests"`
		Interval    time.Duration `envconfig:"INTERVAL" default:"10s" json:"interval"`
		Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s" json:"timeout"`
	}

	SubscriptionsConfig struct {
		Backend   string `envconfig:"SUBSCRIPTIONS_BACKEND" default:"file" json:"backend"`
		Directory string `envconfig:"SUBSCRIPTIONS_DIRECTORY" default:"." json:"directory"`
		KeyPrefix string `envconfig:"SUBSCRIPTIONS_KEY_PREFIX" default:"messenger:subscriptions:" json:"key_prefix"`
	}

	CacheConfig struct {
		Addr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379" json:"addr"`
		Password     string        `envconfig:"REDIS_PASSWORD" default:"" json:"-"`
		DB           int           `envconfig:"REDIS_DB" default:"0" json:"db"`
		PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"4" json:"pool_size"`
		DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
		MaxRetries   int           `envconfig:"REDIS_MAX_RETRIES" default:"3" json:"max_retries"`
	}
)

// QueueConfig converts the broker settings into the connection settings of the queue package.
func (c BrokerConfig) QueueConfig(connectionName string) queue.Config {
	return queue.Config{
		Scheme:         c.Scheme,
		Username:       c.Username,
		Password:       c.Password,
		Host:           c.Host,
		Port:           c.Port,
		Vhost:          c.VirtualHost,
		Heartbeat:      c.Heartbeat,
		ConnectionName: connectionName,
	}
}

// Credentials returns the management API credentials, falling back to the broker account.
func (c ManagementConfig) Credentials(broker BrokerConfig) (string, string) {
	if c.Username == "" {
		return broker.Username, broker.Password
	}

	return c.Username, c.Password
}
