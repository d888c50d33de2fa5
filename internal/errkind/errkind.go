// Package errkind classifies pipeline failures into the five kinds the
// coordinator and tool handlers react to differently, so a network
// timeout is retried while a malformed URL is recorded and skipped.
package errkind

import "errors"

// Kind is the abstract failure classification a pipeline outcome carries.
type Kind string

const (
	// TransientExternal covers network timeouts, 5xx responses, and
	// model-load failures: retryable via the coordinator's backoff, at
	// individual URL/file granularity.
	TransientExternal Kind = "transient_external"
	// PermanentInput covers unknown/unreadable files, malformed URLs, and
	// corrupt audio: non-retryable, recorded on the owning entity and
	// skipped.
	PermanentInput Kind = "permanent_input"
	// ConfigurationError covers unrecognized language configs, embedding
	// dimension mismatches, and missing collaborators: fatal to the
	// affected job, surfaced verbatim.
	ConfigurationError Kind = "configuration_error"
	// StoreError covers constraint violations and deadlocks: retried
	// within the same worker up to a small bounded count before
	// escalating to TransientExternal handling.
	StoreError Kind = "store_error"
	// Cancellation is not a failure; it results in clean teardown.
	Cancellation Kind = "cancellation"
)

// Error wraps an underlying cause with its classification, so pipelines
// return structured outcomes instead of throwing past the coordinator.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause with kind.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Classify reports the Kind carried by err, if any, and whether one was
// found. Unclassified errors are the caller's responsibility to bucket
// (typically TransientExternal, the safest default for retry).
func Classify(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether a job encountering this error should be
// retried by the coordinator's backoff rather than failed immediately.
func Retryable(err error) bool {
	kind, ok := Classify(err)
	if !ok {
		return true // unclassified errors default to retryable
	}
	switch kind {
	case TransientExternal, StoreError:
		return true
	default:
		return false
	}
}
