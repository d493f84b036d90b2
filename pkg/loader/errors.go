package loader

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies why a load did not produce a usable dependency.
type Kind string

const (
	// KindTimeout means no terminal signal arrived within the attempt window.
	KindTimeout Kind = "timeout"
	// KindLoadError means the element reported that the resource failed to load or execute.
	KindLoadError Kind = "load_error"
	// KindIntegrity means the resource loaded but the global symbol never appeared.
	KindIntegrity Kind = "integrity"
	// KindRetryExhausted means every attempt in the budget failed.
	KindRetryExhausted Kind = "retry_exhausted"
	// KindCanceled means the caller's context ended an attempt.
	KindCanceled Kind = "canceled"
)

// Retryable reports whether the supervisor may try again after this kind of failure.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindLoadError
}

// LoadFailure is the terminal error surfaced by the supervisor and the gate.
type LoadFailure struct {
	Kind     Kind
	URL      string
	Reason   string
	Last     Kind
	Attempts int
}

func (e *LoadFailure) Error() string {
	switch e.Kind {
	case KindRetryExhausted:
		return fmt.Sprintf("failed loading %s after %d attempts: %s", e.URL, e.Attempts, e.Reason)
	case KindIntegrity:
		return e.Reason
	default:
		return fmt.Sprintf("%s loading %s: %s", e.Kind, e.URL, e.Reason)
	}
}

// IsKind reports whether err is a *LoadFailure of the given kind.
func IsKind(err error, kind Kind) bool {
	var lf *LoadFailure
	if !stderrors.As(err, &lf) || lf == nil {
		return false
	}
	return lf.Kind == kind
}
