package router_test

import (
	"context"
	"testing"

	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/internal/router"
	"github.com/loopline/concierge/pkg/api"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeProvider scripts a sequence of results and records each call it saw.
type fakeProvider struct {
	name        string
	configured  bool
	defModel    string
	systemRole  bool
	attachments bool

	results []result
	calls   []llm.CompletionRequest
}

type result struct {
	content string
	err     error
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) Configured() bool          { return f.configured }
func (f *fakeProvider) DefaultModel() string      { return f.defModel }
func (f *fakeProvider) SupportsSystemRole() bool  { return f.systemRole }
func (f *fakeProvider) SupportsAttachments() bool { return f.attachments }

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.calls = append(f.calls, req)
	if len(f.results) == 0 {
		return "", llm.Fatal(f.name, "unexpected call")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.content, r.err
}

func failure(provider string, kind llm.FailureKind) *llm.ClassifiedFailure {
	return &llm.ClassifiedFailure{Kind: kind, Provider: provider, Message: "scripted"}
}

func chatProvider(name, model string) *fakeProvider {
	return &fakeProvider{name: name, configured: true, defModel: model, systemRole: true}
}

func visionProvider(name, model string) *fakeProvider {
	return &fakeProvider{name: name, configured: true, defModel: model, attachments: true}
}

type captureRecorder struct {
	records []router.AttemptRecord
}

func (r *captureRecorder) Record(rec router.AttemptRecord) {
	r.records = append(r.records, rec)
}

var userMessages = []api.ChatMessage{{Role: api.RoleUser, Content: "Hi"}}

func TestComplete_PrimarySucceedsFirstAttempt(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{content: "hello"}}
	secondary := chatProvider("secondary", "model-b")

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	assert.False(t, res.Exhausted)
	assert.Equal(t, "hello", res.Content)
	assert.Len(t, primary.calls, 1)
	assert.Empty(t, secondary.calls)
	assert.Equal(t, "model-a", primary.calls[0].Model)
}

func TestComplete_AuthFailureAbandonsProviderImmediately(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{err: failure("primary", llm.FailureAuth)}}
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{content: "from secondary"}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	assert.Equal(t, "from secondary", res.Content)
	assert.Len(t, primary.calls, 1)
	assert.Len(t, secondary.calls, 1)
}

func TestComplete_ModelIncompatibleStripsRoleThenFallsToDefault(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{
		{err: failure("primary", llm.FailureModelIncompatible)},
		{err: failure("primary", llm.FailureModelIncompatible)},
		{content: "third time lucky"},
	}

	o := router.New(zap.NewNop(), []llm.Provider{primary})
	res := o.Complete(context.Background(), router.Request{
		Messages: []api.ChatMessage{
			{Role: api.RoleSystem, Content: "Be terse."},
			{Role: api.RoleUser, Content: "Hi"},
		},
		Model: "custom-model",
	})

	assert.Equal(t, "third time lucky", res.Content)
	assert.Len(t, primary.calls, 3)

	// First attempt: requested model, system role intact.
	assert.Equal(t, "custom-model", primary.calls[0].Model)
	assert.Equal(t, api.RoleSystem, primary.calls[0].Messages[0].Role)

	// Second attempt: same model, system role merged away.
	assert.Equal(t, "custom-model", primary.calls[1].Model)
	for _, m := range primary.calls[1].Messages {
		assert.NotEqual(t, api.RoleSystem, m.Role)
	}

	// Third attempt: default model, still no system role.
	assert.Equal(t, "model-a", primary.calls[2].Model)
	for _, m := range primary.calls[2].Messages {
		assert.NotEqual(t, api.RoleSystem, m.Role)
	}
}

func TestComplete_ModelIncompatibleOnDefaultModelAbandonsAfterStrip(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{
		{err: failure("primary", llm.FailureModelIncompatible)},
		{err: failure("primary", llm.FailureModelIncompatible)},
	}
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{content: "fallback"}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	// Default model: only strip is available, then the provider is abandoned.
	assert.Equal(t, "fallback", res.Content)
	assert.Len(t, primary.calls, 2)
}

func TestComplete_ModelUnavailableFallsBackToDefaultModel(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{
		{err: failure("primary", llm.FailureModelUnavailable)},
		{content: "default worked"},
	}

	o := router.New(zap.NewNop(), []llm.Provider{primary})
	res := o.Complete(context.Background(), router.Request{
		Messages: userMessages,
		Model:    "missing-model",
	})

	assert.Equal(t, "default worked", res.Content)
	assert.Len(t, primary.calls, 2)
	assert.Equal(t, "missing-model", primary.calls[0].Model)
	assert.Equal(t, "model-a", primary.calls[1].Model)
}

func TestComplete_RateLimitedOnDefaultModelAbandons(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{err: failure("primary", llm.FailureRateLimited)}}
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{content: "fallback"}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	assert.Equal(t, "fallback", res.Content)
	assert.Len(t, primary.calls, 1)
}

func TestComplete_ModelOverrideOnlyAppliesToPrimary(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{err: failure("primary", llm.FailureAuth)}}
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{content: "ok"}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	o.Complete(context.Background(), router.Request{
		Messages: userMessages,
		Model:    "custom-model",
	})

	assert.Equal(t, "custom-model", primary.calls[0].Model)
	assert.Equal(t, "model-b", secondary.calls[0].Model)
}

func TestComplete_SkipsUnconfiguredProviders(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.configured = false
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{content: "ok"}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	assert.Equal(t, "ok", res.Content)
	assert.Empty(t, primary.calls)
}

func TestComplete_NoProvidersConfiguredIsExhaustedWithoutCalls(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.configured = false
	secondary := chatProvider("secondary", "model-b")
	secondary.configured = false

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	assert.True(t, res.Exhausted)
	assert.Empty(t, primary.calls)
	assert.Empty(t, secondary.calls)
}

func TestComplete_AllProvidersFailIsExhausted(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{err: failure("primary", llm.FailureFatal)}}
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{err: failure("secondary", llm.FailureFatal)}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary})
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})

	assert.True(t, res.Exhausted)
	assert.Empty(t, res.Content)
}

func TestComplete_AttachmentProviderOnlySeesAttachmentRequests(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{err: failure("primary", llm.FailureFatal)}}
	vision := visionProvider("vision", "vision-model")
	vision.results = []result{{content: "described the image"}}

	o := router.New(zap.NewNop(), []llm.Provider{primary, vision})

	// Plain chat: the attachment provider never participates.
	res := o.Complete(context.Background(), router.Request{Messages: userMessages})
	assert.True(t, res.Exhausted)
	assert.Empty(t, vision.calls)

	// With an attachment it does, and receives the binary.
	primary.results = []result{{err: failure("primary", llm.FailureFatal)}}
	att := &api.Attachment{Data: []byte{1, 2, 3}, MimeType: "application/pdf"}
	res = o.Complete(context.Background(), router.Request{Messages: userMessages, Attachment: att})
	assert.Equal(t, "described the image", res.Content)
	assert.Len(t, vision.calls, 1)
	assert.Equal(t, att, vision.calls[0].Attachment)
}

func TestComplete_ExtractedTextSkipsAttachmentProvider(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{{content: "used the text"}}
	vision := visionProvider("vision", "vision-model")

	o := router.New(zap.NewNop(), []llm.Provider{primary, vision})
	res := o.Complete(context.Background(), router.Request{
		Messages:         userMessages,
		Attachment:       &api.Attachment{Data: []byte{1}, MimeType: "application/pdf"},
		HasExtractedText: true,
	})

	assert.Equal(t, "used the text", res.Content)
	assert.Empty(t, vision.calls)
}

func TestComplete_SystemRoleStrippedUpFrontForIncapableProvider(t *testing.T) {
	vision := visionProvider("vision", "vision-model")
	vision.results = []result{{content: "ok"}}

	o := router.New(zap.NewNop(), []llm.Provider{vision})
	o.Complete(context.Background(), router.Request{
		Messages: []api.ChatMessage{
			{Role: api.RoleSystem, Content: "Respond with JSON."},
			{Role: api.RoleUser, Content: "Analyze"},
		},
		Attachment: &api.Attachment{Data: []byte{1}, MimeType: "image/png"},
	})

	assert.Len(t, vision.calls, 1)
	for _, m := range vision.calls[0].Messages {
		assert.NotEqual(t, api.RoleSystem, m.Role)
	}
}

func TestComplete_RecorderSeesEveryAttempt(t *testing.T) {
	primary := chatProvider("primary", "model-a")
	primary.results = []result{
		{err: failure("primary", llm.FailureRateLimited)},
	}
	secondary := chatProvider("secondary", "model-b")
	secondary.results = []result{{content: "ok"}}

	rec := &captureRecorder{}
	o := router.New(zap.NewNop(), []llm.Provider{primary, secondary}, router.WithRecorder(rec))
	o.Complete(context.Background(), router.Request{
		RequestID: "req-1",
		Messages:  userMessages,
	})

	assert.Len(t, rec.records, 2)
	assert.Equal(t, "req-1", rec.records[0].RequestID)
	assert.Equal(t, "primary", rec.records[0].Provider)
	assert.Equal(t, "rate_limited", rec.records[0].Outcome)
	assert.Equal(t, "secondary", rec.records[1].Provider)
	assert.Equal(t, "success", rec.records[1].Outcome)
}
