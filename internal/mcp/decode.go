package mcp

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/micasa/marketer/internal/errors"
)

// args round-trips the tool arguments through JSON into T. A type mismatch
// (say, a string limit) is reported as INVALID_REQUEST naming the tool.
func args[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err == nil {
		err = json.Unmarshal(raw, &out)
	}
	if err != nil {
		return out, errors.NewInvalidRequest(fmt.Sprintf("invalid arguments for %s: %v", req.Params.Name, err))
	}
	return out, nil
}
