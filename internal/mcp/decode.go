package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hailworks/jnmcp/internal/errors"
)

// decode round-trips the request arguments through JSON into the tool's
// input struct. Malformed or mistyped arguments come back as a typed
// INVALID_REQUEST, so handlers forward the error without re-wrapping it.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var input T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, errors.NewInvalidRequest("arguments are not serializable: " + err.Error())
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return input, nil
}
