package mcpspoke

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
)

func testLogger() logging.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func spokeTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := tools.NewRegistry()
	if err := tools.RegisterCatalog(registry, nil); err != nil {
		t.Fatalf("register catalog: %v", err)
	}
	srv, err := NewServer(Config{
		Registry: registry,
		Invoker:  tools.NewInvoker(registry, testLogger(), tools.InvokerConfig{}),
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return srv },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func spokeClient(t *testing.T, url string) *mcp.ClientSession {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{Endpoint: url}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func extractText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestSpokeListTools(t *testing.T) {
	ts := spokeTestServer(t)
	session := spokeClient(t, ts.URL)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, expected := range []string{"simulation", "identification", "scheduling", "control", "testing"} {
		if !names[expected] {
			t.Fatalf("expected tool %s, got %v", expected, names)
		}
	}
	if len(result.Tools) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(result.Tools))
	}
}

func TestSpokeCallSimulation(t *testing.T) {
	ts := spokeTestServer(t)
	session := spokeClient(t, ts.URL)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "simulation",
		Arguments: map[string]any{
			"boundary_conditions": map[string]any{"inflow": 150},
			"duration":            24,
		},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %+v", result.Content)
	}

	parsed, err := tools.ParseResult(extractText(result))
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Status != tools.StatusSuccess || parsed.Tool != "simulation" {
		t.Fatalf("unexpected result %+v", parsed)
	}
	if !parsed.Metadata.IsMock {
		t.Fatalf("expected mock metadata, got %+v", parsed.Metadata)
	}
}
