// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Login outcomes.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeEmailExists        = "email_exists"
	OutcomeRateLimited        = "rate_limited"
	OutcomeError              = "error"
)

// Token rejection reasons.
const (
	ReasonMissing     = "missing"
	ReasonInvalid     = "invalid"
	ReasonExpired     = "expired"
	ReasonUnknownUser = "unknown_user"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncLogin(outcome string)
	IncRegistration(outcome string)
	IncTokenRejected(reason string)

	// Task management metrics
	IncTaskCreated()
	IncTaskUpdated()
	IncTaskDeleted()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
