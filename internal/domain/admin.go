package domain

import (
	"github.com/architeacher/amqp-messenger/pkg/queue"
)

// Outcome classifies the result of an administrative operation.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeReverified       Outcome = "reverified"
	OutcomeRemoved          Outcome = "removed"
	OutcomePartiallyRemoved Outcome = "partially_removed"
	OutcomeRejected         Outcome = "rejected"
	OutcomeFailed           Outcome = "failed"
)

// AdminResult reports one administrative operation. Provisions lists the individual
// declarations it performed, including failed ones.
type AdminResult struct {
	Name       string
	Outcome    Outcome
	Message    string
	Provisions []queue.Provision
	Err        error
}

// Succeeded reports whether the operation reached its goal.
func (r AdminResult) Succeeded() bool {
	switch r.Outcome {
	case OutcomeCreated, OutcomeReverified, OutcomeRemoved:
		return true
	default:
		return false
	}
}
