package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/internal/router"
	"github.com/loopline/concierge/internal/server/middleware"
	v1 "github.com/loopline/concierge/internal/server/v1"
	"github.com/loopline/concierge/internal/server/validator"
	"github.com/loopline/concierge/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	result router.Result
	gotReq router.Request
	called bool
}

func (f *fakeCompleter) Complete(_ context.Context, req router.Request) router.Result {
	f.called = true
	f.gotReq = req
	return f.result
}

func setupChatEngine(c v1.Completer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.InitValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.ErrorHandler(zap.NewNop()))

	h := v1.NewChatHandler(c)
	engine.POST("/v1/chat", h.CreateCompletion)
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCreateCompletion_Success(t *testing.T) {
	completer := &fakeCompleter{result: router.Result{Content: "Hello!"}}
	engine := setupChatEngine(completer)

	w := postJSON(t, engine, "/v1/chat", api.ChatRequest{
		Messages: []api.ChatMessage{{Role: "user", Content: "Hi"}},
		Model:    "some/model",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.CompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hello!", resp.Content)

	assert.Equal(t, "some/model", completer.gotReq.Model)
	assert.NotEmpty(t, completer.gotReq.RequestID)
	assert.Equal(t, completer.gotReq.RequestID, w.Header().Get(middleware.HeaderRequestID))
}

func TestCreateCompletion_ValidationFailure(t *testing.T) {
	completer := &fakeCompleter{}
	engine := setupChatEngine(completer)

	// Empty message list fails binding.
	w := postJSON(t, engine, "/v1/chat", map[string]any{"messages": []any{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, completer.called)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "Validation Error", problem["title"])
	assert.Contains(t, problem, "errors")
}

func TestCreateCompletion_InvalidRole(t *testing.T) {
	completer := &fakeCompleter{}
	engine := setupChatEngine(completer)

	w := postJSON(t, engine, "/v1/chat", map[string]any{
		"messages": []map[string]string{{"role": "robot", "content": "beep"}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, completer.called)
}

func TestCreateCompletion_Exhausted(t *testing.T) {
	completer := &fakeCompleter{result: router.Result{Exhausted: true}}
	engine := setupChatEngine(completer)

	w := postJSON(t, engine, "/v1/chat", api.ChatRequest{
		Messages: []api.ChatMessage{{Role: "user", Content: "Hi"}},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "AI Provider Unavailable", problem["title"])
}
