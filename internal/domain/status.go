package domain

import "time"

type (
	DependencyCheckStatus string

	HealthResponseStatus string

	// ClientState is the lifecycle of a messaging client.
	ClientState string
)

const (
	DependencyCheckStatusHealthy   DependencyCheckStatus = "healthy"
	DependencyCheckStatusDegraded  DependencyCheckStatus = "degraded"
	DependencyCheckStatusUnhealthy DependencyCheckStatus = "unhealthy"
)

const (
	HealthResponseStatusHealthy   HealthResponseStatus = "healthy"
	HealthResponseStatusDegraded  HealthResponseStatus = "degraded"
	HealthResponseStatusUnhealthy HealthResponseStatus = "unhealthy"
)

const (
	ClientStateUninitialized ClientState = "uninitialized"
	ClientStateProvisioned   ClientState = "provisioned"
	ClientStateConsuming     ClientState = "consuming"
	ClientStateClosed        ClientState = "closed"
)

type (
	DependencyStatus struct {
		Status       DependencyCheckStatus `json:"status"`
		ResponseTime float32               `json:"response_time_ms"`
		LastChecked  time.Time             `json:"last_checked"`
		Error        string                `json:"error,omitempty"`
	}

	// HealthResult reports the broker connection, the management API and the optional cache.
	HealthResult struct {
		OverallStatus HealthResponseStatus `json:"status"`
		Broker        DependencyStatus     `json:"broker"`
		Directory     DependencyStatus     `json:"directory"`
		Cache         *DependencyStatus    `json:"cache,omitempty"`
		Uptime        float32              `json:"uptime_seconds"`
	}
)
