// Package router drives completion attempts across providers. The original
// retry-by-recursion control flow is flattened into an explicit loop over
// attempt plans with a counted budget, so the retry bound is an invariant
// rather than an emergent property of argument flags.
package router

import (
	"context"
	"errors"
	"time"

	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/pkg/api"
	"go.uber.org/zap"
)

// maxAttemptsPerProvider bounds one provider's share of the budget: at most
// one non-default and one default model, and the same provider+model pair at
// most twice (with and then without the system role).
const maxAttemptsPerProvider = 3

// Request is one routing job. Model overrides the primary provider's default;
// fallback providers always use their own. HasExtractedText marks analysis
// requests whose document text already travels inside Messages, which makes
// re-sending the binary attachment pointless.
type Request struct {
	RequestID        string
	Messages         []api.ChatMessage
	Model            string
	Attachment       *api.Attachment
	HasExtractedText bool
}

// Result is the terminal router state: content, or Exhausted when every
// configured provider/model combination failed or was unavailable.
type Result struct {
	Content   string
	Exhausted bool
}

// AttemptRecord describes one finished attempt for the audit trail.
type AttemptRecord struct {
	RequestID      string
	Provider       string
	Model          string
	OmitSystemRole bool
	Outcome        string
	Latency        time.Duration
}

// Recorder receives attempt records. Implementations must not block; the
// analytics ingestor buffers internally.
type Recorder interface {
	Record(rec AttemptRecord)
}

// attemptPlan describes exactly one upstream call. Plans are never mutated,
// only superseded by the transition table.
type attemptPlan struct {
	model          string
	omitSystemRole bool
}

type Orchestrator struct {
	logger    *zap.Logger
	providers []llm.Provider
	recorder  Recorder
	budget    int
}

type Option func(*Orchestrator)

// WithRecorder attaches an attempt audit sink.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New builds an orchestrator over providers in fallback precedence order:
// primary chat first, attachment-capable second, SDK provider last.
func New(logger *zap.Logger, providers []llm.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:    logger,
		providers: providers,
		budget:    maxAttemptsPerProvider * len(providers),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete walks the provider precedence until one yields content or all are
// exhausted. Attempts are strictly sequential; a provider's outcome decides
// the next plan before any further call is made.
func (o *Orchestrator) Complete(ctx context.Context, req Request) Result {
	attempts := 0

	for _, p := range o.providers {
		if !p.Configured() {
			o.logger.Debug("skipping unconfigured provider",
				zap.String("request_id", req.RequestID),
				zap.String("provider", p.Name()),
			)
			continue
		}

		// The attachment-capable provider only participates when the request
		// actually carries an attachment whose text is not already extracted.
		// Pure chat skips it entirely.
		if p.SupportsAttachments() && (req.Attachment == nil || req.HasExtractedText) {
			continue
		}

		content, used := o.tryProvider(ctx, p, req, &attempts)
		if used {
			return Result{Content: content}
		}
		if attempts >= o.budget {
			break
		}
	}

	o.logger.Warn("all providers exhausted",
		zap.String("request_id", req.RequestID),
		zap.Int("attempts", attempts),
	)
	return Result{Exhausted: true}
}

// tryProvider runs the per-provider state machine. It returns the content
// and true on success, or false once the provider is abandoned.
func (o *Orchestrator) tryProvider(ctx context.Context, p llm.Provider, req Request, attempts *int) (string, bool) {
	model := p.DefaultModel()
	if req.Model != "" && p == o.providers[0] {
		model = req.Model
	}

	plan := attemptPlan{
		model:          model,
		omitSystemRole: !p.SupportsSystemRole(),
	}

	for i := 0; i < maxAttemptsPerProvider && *attempts < o.budget; i++ {
		*attempts++

		content, err := o.attempt(ctx, p, req, plan)
		if err == nil {
			o.logger.Info("completion succeeded",
				zap.String("request_id", req.RequestID),
				zap.String("provider", p.Name()),
				zap.String("model", plan.model),
				zap.Int("attempt", *attempts),
			)
			return content, true
		}

		if errors.Is(err, llm.ErrNotConfigured) {
			return "", false
		}

		failure := llm.AsClassified(p.Name(), err)
		next, ok := o.nextPlan(p, plan, failure.Kind)
		if !ok {
			o.logger.Warn("abandoning provider",
				zap.String("request_id", req.RequestID),
				zap.String("provider", p.Name()),
				zap.String("model", plan.model),
				zap.String("failure", failure.Kind.String()),
				zap.Error(failure),
			)
			return "", false
		}

		o.logger.Warn("retrying provider",
			zap.String("request_id", req.RequestID),
			zap.String("provider", p.Name()),
			zap.String("failure", failure.Kind.String()),
			zap.String("next_model", next.model),
			zap.Bool("omit_system_role", next.omitSystemRole),
		)
		plan = next
	}

	return "", false
}

// nextPlan is the transition table. Role-stripping is monotonic: once a plan
// omits the system role, no successor restores it.
func (o *Orchestrator) nextPlan(p llm.Provider, plan attemptPlan, kind llm.FailureKind) (attemptPlan, bool) {
	switch kind {
	case llm.FailureModelIncompatible:
		if !plan.omitSystemRole {
			return attemptPlan{model: plan.model, omitSystemRole: true}, true
		}
		if plan.model != p.DefaultModel() {
			return attemptPlan{model: p.DefaultModel(), omitSystemRole: true}, true
		}
		return attemptPlan{}, false

	case llm.FailureModelUnavailable, llm.FailureRateLimited:
		if plan.model != p.DefaultModel() {
			return attemptPlan{model: p.DefaultModel(), omitSystemRole: plan.omitSystemRole}, true
		}
		return attemptPlan{}, false

	default:
		// Auth, Fatal, Transient: nothing provider-local can fix these.
		return attemptPlan{}, false
	}
}

func (o *Orchestrator) attempt(ctx context.Context, p llm.Provider, req Request, plan attemptPlan) (string, error) {
	messages := llm.Normalize(req.Messages, plan.omitSystemRole)

	creq := llm.CompletionRequest{
		Messages: messages,
		Model:    plan.model,
	}
	if p.SupportsAttachments() {
		creq.Attachment = req.Attachment
	}

	start := time.Now()
	content, err := p.Complete(ctx, creq)
	latency := time.Since(start)

	if o.recorder != nil {
		outcome := "success"
		if errors.Is(err, llm.ErrNotConfigured) {
			outcome = "skipped"
		} else if err != nil {
			outcome = llm.AsClassified(p.Name(), err).Kind.String()
		}
		o.recorder.Record(AttemptRecord{
			RequestID:      req.RequestID,
			Provider:       p.Name(),
			Model:          plan.model,
			OmitSystemRole: plan.omitSystemRole,
			Outcome:        outcome,
			Latency:        latency,
		})
	}

	return content, err
}
