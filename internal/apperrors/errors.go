package apperrors

import "fmt"

// ValidationError rejects a malformed request before anything is
// persisted or scheduled.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigurationError marks a delivery platform whose credentials are
// missing. It surfaces as a per-target failure inside a fan-out.
type ConfigurationError struct {
	Platform string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s credentials not configured", e.Platform)
}

// UnsupportedPlatformError marks an unknown delivery target identifier.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

// PlatformError records a failed remote call to a delivery target.
type PlatformError struct {
	Platform string
	Message  string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

// SchedulingError marks a job registration the scheduler refused, such
// as an unparseable cron expression or an unregistered handler kind.
type SchedulingError struct {
	JobID  string
	Reason string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("cannot schedule %s: %s", e.JobID, e.Reason)
}

// TimeoutError marks an external call that exceeded its deadline.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Op)
}

// ExecutionError marks a total failure to execute a campaign send:
// the campaign could not be read or the mail collaborator could not be
// invoked at all. Per-recipient failures do not take this path.
type ExecutionError struct {
	CampaignID string
	Cause      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("campaign %s execution failed: %v", e.CampaignID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// NotFoundError marks a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
