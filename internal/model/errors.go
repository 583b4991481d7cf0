package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers are expected to branch on.
// Wrap them with fmt.Errorf("...: %w", ...) to add context; match with
// errors.Is.
var (
	// ErrUnknownTemplate is thrown when a template name is not in the catalog.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrTypeMismatch is thrown when a raw input cannot be coerced to its
	// declared kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidEnumValue is thrown when an enum input is outside its
	// allowed set.
	ErrInvalidEnumValue = errors.New("invalid enum value")

	// ErrMissingRequiredInput is thrown when a required input has no value
	// and no default.
	ErrMissingRequiredInput = errors.New("missing required input")

	// ErrUnknownInput is thrown in strict mode for raw keys not declared in
	// the template's schema.
	ErrUnknownInput = errors.New("unknown input")

	// ErrMissingSecret is thrown when a secret reference the template
	// requires was not supplied.
	ErrMissingSecret = errors.New("missing secret reference")

	// ErrUndefinedConditionVariable is thrown when a condition references an
	// input absent from the resolved config.
	ErrUndefinedConditionVariable = errors.New("undefined condition variable")

	// ErrCycle is thrown when the dependency relation over included jobs is
	// not a DAG. Conditions cannot add edges, so this always indicates a
	// catalog-authoring bug.
	ErrCycle = errors.New("dependency cycle")

	// ErrMissingMetric is thrown when a job claims success without reporting
	// a gated metric. A job-contract violation, not a gate failure.
	ErrMissingMetric = errors.New("missing gated metric")
)

// ValidationError classifies bad caller input: unknown template, type
// mismatch, missing required input, missing secret reference, unknown input
// key. Reported immediately, never retried, no job runs.
type ValidationError struct {
	Template string
	Input    string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("template %s: input %s: %s", e.Template, e.Input, e.Err)
	}
	return fmt.Sprintf("template %s: %s", e.Template, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CatalogError classifies an authoring bug in the template source itself:
// malformed document, invariant violation, dependency cycle.
type CatalogError struct {
	Template string
	Job      string
	Err      error
}

func (e *CatalogError) Error() string {
	switch {
	case e.Template != "" && e.Job != "":
		return fmt.Sprintf("catalog: template %s: job %s: %s", e.Template, e.Job, e.Err)
	case e.Template != "":
		return fmt.Sprintf("catalog: template %s: %s", e.Template, e.Err)
	default:
		return fmt.Sprintf("catalog: %s", e.Err)
	}
}

func (e *CatalogError) Unwrap() error { return e.Err }

// BackendError classifies the execution backend being unreachable or failing
// independently of the job's own logic. The only class the dispatcher
// retries.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsBackendError reports whether err is (or wraps) a BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
