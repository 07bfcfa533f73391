package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loopline/concierge/internal/httpclient"
	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/pkg/api"
)

const providerName = "openrouter"

const defaultModel = "meta-llama/llama-3.1-70b-instruct"

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int

	// Referer and Title are forwarded as HTTP-Referer / X-Title for
	// request attribution on the provider's dashboard.
	Referer string
	Title   string
}

type Adapter struct {
	config Config
	client httpclient.HTTPClient
}

func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = "https://openrouter.ai/api/v1"
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 45 * time.Second},
	}
}

func (a *Adapter) Name() string              { return providerName }
func (a *Adapter) Configured() bool          { return a.config.APIKey != "" }
func (a *Adapter) DefaultModel() string      { return a.config.DefaultModel }
func (a *Adapter) SupportsSystemRole() bool  { return true }
func (a *Adapter) SupportsAttachments() bool { return false }

type chatRequest struct {
	Model     string            `json:"model"`
	Messages  []api.ChatMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// upstreamErrorResponse mirrors the provider's nested error shape. Code can
// arrive as a number or a string, and the original status is sometimes only
// present in metadata.raw.
type upstreamErrorResponse struct {
	Error struct {
		Code     json.Number `json:"code"`
		Message  string      `json:"message"`
		Metadata struct {
			Raw string `json:"raw"`
		} `json:"metadata"`
	} `json:"error"`
}

func (a *Adapter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if !a.Configured() {
		return "", llm.ErrNotConfigured
	}

	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}

	headers := map[string]string{
		"Authorization": "Bearer " + a.config.APIKey,
	}
	if a.config.Referer != "" {
		headers["HTTP-Referer"] = a.config.Referer
	}
	if a.config.Title != "" {
		headers["X-Title"] = a.config.Title
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.config.BaseURL, "/"))

	body := chatRequest{
		Model:     model,
		Messages:  req.Messages,
		MaxTokens: a.config.MaxTokens,
	}

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, headers, body, &resp); err != nil {
		return "", a.classify(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llm.Fatal(providerName, "empty completion response")
	}

	return resp.Choices[0].Message.Content, nil
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

	var apiErr upstreamErrorResponse
	_ = json.Unmarshal(upstream.Body, &apiErr)

	code := 0
	if c, convErr := apiErr.Error.Code.Int64(); convErr == nil {
		code = int(c)
	}

	message := apiErr.Error.Message
	if message == "" {
		message = string(upstream.Body)
	}

	return &llm.ClassifiedFailure{
		Kind:     llm.Classify(upstream.StatusCode, code, message, apiErr.Error.Metadata.Raw),
		Provider: providerName,
		Status:   upstream.StatusCode,
		Message:  message,
		Raw:      err,
	}
}
