package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/response"
	"github.com/hailworks/jnmcp/internal/tools"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps    *tools.Deps
	version string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *tools.Deps, version string) *Handlers {
	return &Handlers{deps: deps, version: version}
}

// listHandler adapts a list-style tool operation to an MCP handler.
func (h *Handlers) listHandler(op func(context.Context, *tools.Deps, tools.ListInput) (response.Envelope, error)) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[tools.ListInput](req)
		if err != nil {
			return errorResult(err), nil
		}
		env, err := op(ctx, h.deps, input)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(env)
	}
}

// getHandler adapts a single-record tool operation to an MCP handler.
func (h *Handlers) getHandler(op func(context.Context, *tools.Deps, tools.GetInput) (response.Envelope, error)) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[tools.GetInput](req)
		if err != nil {
			return errorResult(err), nil
		}
		env, err := op(ctx, h.deps, input)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(env)
	}
}

// analyticsHandler adapts an analytics tool operation to an MCP handler.
func (h *Handlers) analyticsHandler(op func(context.Context, *tools.Deps, tools.AnalyticsInput) (response.Envelope, error)) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[tools.AnalyticsInput](req)
		if err != nil {
			return errorResult(err), nil
		}
		env, err := op(ctx, h.deps, input)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(env)
	}
}

// HandleResultFetch handles the result_fetch tool call.
func (h *Handlers) HandleResultFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[tools.ResultFetchInput](req)
	if err != nil {
		return errorResult(err), nil
	}
	env, err := tools.ResultFetch(ctx, h.deps, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(env)
}

// HandleSystemInfo handles the system_info tool call.
func (h *Handlers) HandleSystemInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := tools.SystemInfo(ctx, h.deps, h.version)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(info)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var jnErr *errors.JNError
	if stderrors.As(err, &jnErr) {
		// Keep wrapper context (e.g. "items[2]: ...") when the typed error
		// arrived wrapped.
		message := jnErr.Message
		if wrapped := err.Error(); wrapped != jnErr.Error() {
			message = wrapped
		}
		errorObj := map[string]any{
			"code":    jnErr.Code,
			"message": message,
			"status":  jnErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like upstream URLs or driver errors
		if jnErr.Code != errors.ErrInternal && jnErr.Details != nil {
			errorObj["details"] = jnErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
