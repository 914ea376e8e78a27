package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/leixiaohui-1974/HydroResources/internal/conversation"
	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
)

func setupHandlerRouter(t *testing.T, provider llm.Provider) (*gin.Engine, *conversation.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := tools.NewRegistry()
	if err := tools.RegisterCatalog(registry, nil); err != nil {
		t.Fatalf("register catalog: %v", err)
	}
	store := conversation.NewStore()
	orchestrator := NewOrchestrator(Config{
		Provider: provider,
		Registry: registry,
		Invoker:  tools.NewInvoker(registry, testLogger(), tools.InvokerConfig{}),
		Store:    store,
		Logger:   testLogger(),
	})
	handler := NewHandler(orchestrator, store, registry, testLogger())

	router := gin.New()
	api := router.Group("/api/hydronet")
	RegisterRoutes(api, handler)
	return router, store
}

func TestHandleChatStreamsSSE(t *testing.T) {
	provider := &scriptedProvider{passes: [][]llm.Chunk{
		{{Content: "你好"}},
	}}
	router, _ := setupHandlerRouter(t, provider)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/hydronet/chat",
		strings.NewReader(`{"conversation_id":"conv-1","message":"你好"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if recorder.Header().Get("X-Conversation-ID") != "conv-1" {
		t.Fatalf("missing conversation header")
	}

	body := recorder.Body.String()
	if !strings.Contains(body, `"type":"text"`) {
		t.Fatalf("expected text event in body: %s", body)
	}
	if !strings.Contains(body, `"type":"complete"`) {
		t.Fatalf("expected complete event in body: %s", body)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Fatalf("expected [DONE] terminator: %s", body)
	}
}

func TestHandleChatValidation(t *testing.T) {
	router, _ := setupHandlerRouter(t, &scriptedProvider{})

	cases := []struct {
		name string
		body string
	}{
		{"empty message", `{"conversation_id":"conv-1","message":"  "}`},
		{"missing conversation", `{"message":"hi"}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/hydronet/chat", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, recorder.Code)
		}
	}
}

func TestHandleChatFailureIsGeneric(t *testing.T) {
	provider := &scriptedProvider{} // no scripted passes: provider errors out
	router, _ := setupHandlerRouter(t, provider)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/hydronet/chat",
		strings.NewReader(`{"conversation_id":"conv-1","message":"你好"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	body := recorder.Body.String()
	if !strings.Contains(body, `"type":"error"`) {
		t.Fatalf("expected error event: %s", body)
	}
	if strings.Contains(body, "no scripted pass left") {
		t.Fatalf("raw error leaked to client: %s", body)
	}
}

func TestHandleListTools(t *testing.T) {
	router, _ := setupHandlerRouter(t, &scriptedProvider{})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/hydronet/tools", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	for _, name := range []string{"simulation", "identification", "scheduling", "control", "testing"} {
		if !strings.Contains(recorder.Body.String(), `"name":"`+name+`"`) {
			t.Fatalf("tool %s missing from listing: %s", name, recorder.Body.String())
		}
	}
}

func TestHandleConversationEndpoints(t *testing.T) {
	router, store := setupHandlerRouter(t, &scriptedProvider{})
	store.GetOrCreate("conv-1", "system prompt")
	store.Append("conv-1", llm.Message{Role: "user", Content: "hi"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/hydronet/conversations/conv-1", nil)
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"role":"user"`) {
		t.Fatalf("unexpected history response %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/hydronet/conversations/conv-1", nil)
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", recorder.Code)
	}

	if _, err := store.History("conv-1"); err == nil {
		t.Fatalf("conversation should be cleared")
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/hydronet/conversations/conv-1", nil)
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after clear, got %d", recorder.Code)
	}
}
