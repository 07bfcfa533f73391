package llm

import (
	"context"
	"errors"

	"github.com/loopline/concierge/pkg/api"
)

// ErrNotConfigured is returned by an adapter whose credential is absent.
// It is not a failure to classify: the orchestrator treats the provider as
// unavailable and moves on without counting an attempt against it.
var ErrNotConfigured = errors.New("provider not configured")

// CompletionRequest describes exactly one upstream call.
type CompletionRequest struct {
	Messages   []api.ChatMessage
	Model      string
	Attachment *api.Attachment
}

// Provider is the contract every adapter implements. Complete performs at
// most one network call and returns either content or a *ClassifiedFailure
// (or ErrNotConfigured when the credential is missing).
type Provider interface {
	Name() string
	Configured() bool
	DefaultModel() string

	// SupportsSystemRole reports whether the provider accepts a "system"
	// role on the wire. When false the orchestrator strips system messages
	// before the first attempt instead of waiting for a rejection.
	SupportsSystemRole() bool

	// SupportsAttachments reports whether the provider can inline a binary
	// attachment alongside text.
	SupportsAttachments() bool

	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
