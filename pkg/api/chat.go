package api

// --- Roles ---

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// --- Request Types ---

// ChatMessage is one turn of a conversation. Order is meaningful and is
// preserved end to end; only normalization may move system content.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// Attachment carries an inline binary document (base64 over the wire via
// encoding/json's []byte handling) plus its declared MIME type.
type Attachment struct {
	Data     []byte `json:"data" binding:"required"`
	MimeType string `json:"mime_type" binding:"required"`
}

// ChatRequest is the inbound body for the interactive chat endpoint.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`

	// Optional model override for the primary provider. Fallback providers
	// always use their own configured defaults.
	Model string `json:"model,omitempty"`
}

// AnalyzeRequest is the inbound body for the document analysis endpoint.
// At least one of Prompt or Attachment must be present; the handler enforces
// that since binding can't express it.
type AnalyzeRequest struct {
	Prompt        string      `json:"prompt,omitempty"`
	Attachment    *Attachment `json:"attachment,omitempty"`
	ExtractedText string      `json:"extracted_text,omitempty"`
}

// --- Response Types ---

// CompletionResponse is the success shape for /v1/chat.
type CompletionResponse struct {
	Content string `json:"content"`
}

// AnalyzeResponse is the success shape for /v1/analyze. Analysis is the
// parsed JSON object when the provider honored the JSON-only instruction;
// otherwise Content alone carries the result as a plain summary.
type AnalyzeResponse struct {
	Content  string         `json:"content"`
	Analysis map[string]any `json:"analysis,omitempty"`
	Degraded bool           `json:"degraded,omitempty"`
}

// ErrorResponse is the minimal error shape used by middleware that rejects
// a request before it reaches a handler.
type ErrorResponse struct {
	Message string `json:"message"`
}
