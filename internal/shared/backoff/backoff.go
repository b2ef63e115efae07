package backoff

import (
	"math/rand/v2"
	"time"

	"github.com/architeacher/amqp-messenger/internal/config"
)

const (
	defaultMultiplier = 1.6
)

type (
	// Strategy defines the methodology for backing off after a broker
	// connection failure.
	Strategy interface {
		// Backoff returns the amount of time to wait before the next retry given
		// the number of consecutive failures.
		Backoff(retries int) time.Duration
	}

	// Exponential implements exponential backoff algorithm.
	Exponential struct {
		// config contains all options to configure the backoff algorithm.
		config config.BackoffConfig
		// jitter returns a value in [0, 1); replaced in tests.
		jitter func() float64
	}
)

func NewExponentialStrategy(cfg config.BackoffConfig) Exponential {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = defaultMultiplier
	}

	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	return Exponential{
		config: cfg,
		jitter: rand.Float64,
	}
}

// Backoff calculates the backoff duration using exponential backoff with jitter.
func (bc Exponential) Backoff(retries int) time.Duration {
	backoff, maxBackoff := float64(bc.config.BaseDelay), float64(bc.config.MaxDelay)
	for backoff < maxBackoff && retries > 0 {
		backoff *= bc.config.Multiplier
		retries--
	}

	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	backoff *= 1 + bc.config.Jitter*(bc.jitter()*2-1)
	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}
