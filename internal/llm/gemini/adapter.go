package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loopline/concierge/internal/httpclient"
	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/pkg/api"
)

const providerName = "gemini"

const defaultModel = "gemini-1.5-flash"

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

type Adapter struct {
	config Config
	client httpclient.HTTPClient
}

func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	return &Adapter{
		config: config,
		// Inlined attachments make for large payloads, so this timeout is
		// longer than the chat adapters'.
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (a *Adapter) Name() string              { return providerName }
func (a *Adapter) Configured() bool          { return a.config.APIKey != "" }
func (a *Adapter) DefaultModel() string      { return a.config.DefaultModel }
func (a *Adapter) SupportsSystemRole() bool  { return false }
func (a *Adapter) SupportsAttachments() bool { return true }

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type generateError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// shape converts normalized messages (no system role; the orchestrator
// strips it up front) into the provider's contents/parts layout. When an
// attachment is present it becomes the primary content part of the final
// user turn, with that turn's text demoted to surrounding context.
func shape(req llm.CompletionRequest) generateRequest {
	gr := generateRequest{
		GenerationConfig: &generationConfig{
			Temperature:      0.1,
			ResponseMimeType: "application/json",
		},
	}

	for _, m := range req.Messages {
		role := "user"
		if m.Role == api.RoleAssistant {
			role = "model"
		}
		gr.Contents = append(gr.Contents, generateContent{
			Role:  role,
			Parts: []generatePart{{Text: m.Content}},
		})
	}

	if req.Attachment != nil {
		part := generatePart{
			InlineData: &inlineData{
				MimeType: req.Attachment.MimeType,
				Data:     base64.StdEncoding.EncodeToString(req.Attachment.Data),
			},
		}
		if n := len(gr.Contents); n > 0 && gr.Contents[n-1].Role == "user" {
			// Attachment first: it is the primary content of the turn, the
			// text is supporting context.
			gr.Contents[n-1].Parts = append([]generatePart{part}, gr.Contents[n-1].Parts...)
		} else {
			gr.Contents = append(gr.Contents, generateContent{
				Role:  "user",
				Parts: []generatePart{part},
			})
		}
	}

	return gr
}

func (a *Adapter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if !a.Configured() {
		return "", llm.ErrNotConfigured
	}

	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(a.config.BaseURL, "/"),
		model,
		a.config.APIKey,
	)

	var resp generateResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, nil, shape(req), &resp); err != nil {
		return "", a.classify(err)
	}

	var texts []string
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}

	if len(texts) == 0 {
		return "", llm.Fatal(providerName, "empty analysis response")
	}

	return strings.Join(texts, "\n"), nil
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

	var apiErr generateError
	_ = json.Unmarshal(upstream.Body, &apiErr)

	message := apiErr.Error.Message
	if message == "" {
		message = string(upstream.Body)
	}

	return &llm.ClassifiedFailure{
		Kind:     llm.Classify(upstream.StatusCode, apiErr.Error.Code, message, apiErr.Error.Status),
		Provider: providerName,
		Status:   upstream.StatusCode,
		Message:  message,
		Raw:      err,
	}
}
