package mcpspoke

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leixiaohui-1974/HydroResources/internal/chat"
	"github.com/leixiaohui-1974/HydroResources/internal/tools"
	"github.com/leixiaohui-1974/HydroResources/pkg/ctxkeys"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
	"github.com/leixiaohui-1974/HydroResources/pkg/version"
)

// Config configures the HydroNet spoke MCP server, which exposes the
// water-network tool catalog to external MCP clients.
type Config struct {
	Registry *tools.Registry
	Invoker  chat.ToolInvoker
	Logger   logging.Logger
}

// NewServer builds an MCP server with one tool per registry entry. The
// registry is snapshotted at construction; tools registered later are
// not picked up.
func NewServer(cfg Config) (*mcp.Server, error) {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "hydronet-spoke",
		Version: version.Version,
	}, nil)

	for _, spec := range cfg.Registry.List() {
		if err := registerTool(srv, spec, cfg); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func registerTool(srv *mcp.Server, spec tools.Spec, cfg Config) error {
	raw, err := json.Marshal(spec.Parameters)
	if err != nil {
		return fmt.Errorf("marshal schema for %s: %w", spec.Name, err)
	}
	schema := new(jsonschema.Schema)
	if err := json.Unmarshal(raw, schema); err != nil {
		return fmt.Errorf("convert schema for %s: %w", spec.Name, err)
	}

	srv.AddTool(&mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleToolCall(ctx, spec.Name, req, cfg)
	})
	return nil
}

func handleToolCall(ctx context.Context, toolName string, req *mcp.CallToolRequest, cfg Config) (*mcp.CallToolResult, error) {
	var arguments map[string]interface{}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &arguments); err != nil {
			spokeCallsTotal.WithLabelValues(toolName, "error").Inc()
			return toolError(fmt.Sprintf("malformed arguments: %v", err)), nil
		}
	}

	callerID := ctxkeys.GetUserID(ctx)
	if callerID == "" {
		callerID = "mcp"
	}

	started := time.Now()
	result, err := cfg.Invoker.Invoke(ctx, toolName, arguments, callerID)
	spokeCallDuration.WithLabelValues(toolName).Observe(time.Since(started).Seconds())
	if err != nil {
		spokeCallsTotal.WithLabelValues(toolName, "error").Inc()
		cfg.Logger.WithFields(logging.Fields{
			"tool":  toolName,
			"error": err.Error(),
		}).Warn("Spoke tool call failed")
		return toolError(err.Error()), nil
	}

	payload, err := result.Serialize()
	if err != nil {
		spokeCallsTotal.WithLabelValues(toolName, "error").Inc()
		return toolError(fmt.Sprintf("failed to format result: %v", err)), nil
	}
	spokeCallsTotal.WithLabelValues(toolName, "success").Inc()
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: payload}},
	}, nil
}

func toolError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}
