package llm

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind is the routing taxonomy for upstream failures. The kind alone
// decides the orchestrator's next transition; the raw error is kept only for
// logging.
type FailureKind int

const (
	// FailureAuth means credentials were rejected. Terminal for the
	// provider: no model or normalization change can fix it.
	FailureAuth FailureKind = iota

	// FailureModelIncompatible means the request shape is unacceptable to
	// this model, typically a rejected system role. Recoverable on the same
	// provider by stripping the system role or substituting the default
	// model.
	FailureModelIncompatible

	// FailureModelUnavailable means the model does not exist or has no
	// serving endpoint. Recoverable via the provider's default model.
	FailureModelUnavailable

	// FailureRateLimited means the provider throttled the request. Treated
	// like FailureModelUnavailable: substitute the default model, then move
	// on.
	FailureRateLimited

	// FailureTransient is reserved for failures that may clear on their own.
	// The current transition table never produces it; it exists so stored
	// attempt outcomes keep a stable numbering if it is introduced.
	FailureTransient

	// FailureFatal covers everything else, timeouts included. The provider
	// is abandoned for this request.
	FailureFatal
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuth:
		return "auth"
	case FailureModelIncompatible:
		return "model_incompatible"
	case FailureModelUnavailable:
		return "model_unavailable"
	case FailureRateLimited:
		return "rate_limited"
	case FailureTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// ClassifiedFailure is an upstream failure mapped into the taxonomy.
type ClassifiedFailure struct {
	Kind     FailureKind
	Provider string
	Status   int
	Message  string
	Raw      error
}

func (f *ClassifiedFailure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Provider, f.Message, f.Kind)
	}
	return fmt.Sprintf("%s: %s failure", f.Provider, f.Kind)
}

func (f *ClassifiedFailure) Unwrap() error {
	return f.Raw
}

// AsClassified extracts a *ClassifiedFailure from an error chain. Anything
// that is not classified is wrapped as FailureFatal so the orchestrator
// always has a kind to act on.
func AsClassified(provider string, err error) *ClassifiedFailure {
	var cf *ClassifiedFailure
	if errors.As(err, &cf) {
		return cf
	}
	return &ClassifiedFailure{Kind: FailureFatal, Provider: provider, Message: err.Error(), Raw: err}
}

// Fatal builds a FailureFatal for provider-local conditions such as an empty
// response body.
func Fatal(provider, message string) *ClassifiedFailure {
	return &ClassifiedFailure{Kind: FailureFatal, Provider: provider, Message: message}
}

// Classify maps an HTTP status plus the provider's own error payload fields
// into a FailureKind. Rules are checked in order; first match wins. Some
// providers echo the status inside the error body (code) rather than on the
// wire, so both are consulted.
func Classify(status, code int, message, raw string) FailureKind {
	lower := strings.ToLower(message) + " " + strings.ToLower(raw)

	switch {
	case status == 401 || status == 403 || code == 401 || code == 403:
		return FailureAuth

	case (status == 400 || code == 400) &&
		(strings.Contains(lower, "developer instruction is not enabled") ||
			strings.Contains(lower, "invalid_argument")):
		return FailureModelIncompatible

	case status == 404 || code == 404 || strings.Contains(lower, "no endpoints found"):
		return FailureModelUnavailable

	case status == 429 || code == 429 ||
		strings.Contains(lower, "rate-limit") || strings.Contains(lower, "rate limited"):
		return FailureRateLimited

	default:
		return FailureFatal
	}
}
