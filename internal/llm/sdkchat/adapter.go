// Package sdkchat adapts an SDK-style chat provider: the client is an opaque
// object constructed with an API key whose Run method returns output of
// arbitrary shape (string, list, or object) that must be coerced into text.
package sdkchat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/loopline/concierge/internal/httpclient"
	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/pkg/api"
)

const providerName = "sdkchat"

const defaultModel = "command-light"

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Client is the opaque SDK surface. Run returns whatever shape the SDK
// produces; CoerceOutput flattens it.
type Client interface {
	Run(ctx context.Context, model string, messages []api.ChatMessage) (any, error)
}

type Adapter struct {
	config Config
	client Client
}

func New(config Config) *Adapter {
	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	return &Adapter{
		config: config,
		client: &restClient{
			config:     config,
			httpClient: &http.Client{Timeout: 30 * time.Second},
		},
	}
}

// NewWithClient injects a client, used by tests and by callers that already
// hold a constructed SDK instance.
func NewWithClient(config Config, client Client) *Adapter {
	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	return &Adapter{config: config, client: client}
}

func (a *Adapter) Name() string              { return providerName }
func (a *Adapter) Configured() bool          { return a.config.APIKey != "" }
func (a *Adapter) DefaultModel() string      { return a.config.DefaultModel }
func (a *Adapter) SupportsSystemRole() bool  { return true }
func (a *Adapter) SupportsAttachments() bool { return false }

func (a *Adapter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if !a.Configured() {
		return "", llm.ErrNotConfigured
	}

	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}

	out, err := a.client.Run(ctx, model, req.Messages)
	if err != nil {
		return "", a.classify(err)
	}

	content := CoerceOutput(out)
	if content == "" {
		return "", llm.Fatal(providerName, "empty completion response")
	}

	return content, nil
}

func (a *Adapter) classify(err error) error {
	upstream, ok := httpclient.AsUpstream(err)
	if !ok {
		return &llm.ClassifiedFailure{
			Kind:     llm.FailureFatal,
			Provider: providerName,
			Message:  err.Error(),
			Raw:      err,
		}
	}

	body := string(upstream.Body)
	return &llm.ClassifiedFailure{
		Kind:     llm.Classify(upstream.StatusCode, 0, body, ""),
		Provider: providerName,
		Status:   upstream.StatusCode,
		Message:  body,
		Raw:      err,
	}
}

// restClient is the default Client, backed by the provider's plain REST
// chat endpoint. The SDK's output field is decoded as `any` on purpose: the
// provider has shipped strings, part lists, and objects from the same field.
type restClient struct {
	config     Config
	httpClient httpclient.HTTPClient
}

type runRequest struct {
	Model    string            `json:"model"`
	Messages []api.ChatMessage `json:"messages"`
}

type runResponse struct {
	Output any `json:"output"`
}

func (c *restClient) Run(ctx context.Context, model string, messages []api.ChatMessage) (any, error) {
	base := c.config.BaseURL
	if base == "" {
		base = "https://api.sdkchat.dev/v1"
	}
	url := strings.TrimRight(base, "/") + "/run"

	headers := map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	}

	var resp runResponse
	if err := httpclient.SendRequest(ctx, c.httpClient, "POST", url, headers, runRequest{Model: model, Messages: messages}, &resp); err != nil {
		return nil, err
	}

	return resp.Output, nil
}
