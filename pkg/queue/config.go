package queue

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultHeartbeat   = 60 * time.Second
	defaultDialTimeout = 10 * time.Second
	redactedPassword   = "xxxxx"
)

// Config is used to establish a connection with a RabbitMQ server.
type Config struct {
	Scheme   string
	Username string
	Password string
	Host     string
	Port     int
	Vhost    string

	// Heartbeat is negotiated with the server; zero falls back to 60s.
	Heartbeat time.Duration
	// ConnectionName is shown in the management UI for this client.
	ConnectionName string
}

// URL returns the AMQP URI for the configuration.
func (c Config) URL() string {
	return c.uri(c.Password)
}

// RedactedURL returns the AMQP URI with the password masked, suitable for logs and errors.
func (c Config) RedactedURL() string {
	if c.Password == "" {
		return c.uri("")
	}

	return c.uri(redactedPassword)
}

func (c Config) uri(password string) string {
	uri := amqp.URI{
		Scheme:   c.Scheme,
		Username: c.Username,
		Password: password,
		Host:     c.Host,
		Port:     c.Port,
		Vhost:    c.Vhost,
	}

	return uri.String()
}

func (c Config) amqpConfig(dialTimeout time.Duration) amqp.Config {
	heartbeat := c.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	props := amqp.NewConnectionProperties()
	if c.ConnectionName != "" {
		props.SetClientConnectionName(c.ConnectionName)
	}

	return amqp.Config{
		Heartbeat:  heartbeat,
		Vhost:      c.Vhost,
		Locale:     "en_US",
		Properties: props,
		Dial:       amqp.DefaultDial(dialTimeout),
	}
}
