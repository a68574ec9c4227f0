package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// MarshalOutput converts an output value to indented JSON text. Strings are
// returned unchanged.
func MarshalOutput(logger *slog.Logger, o any) string {
	if str, ok := o.(string); ok {
		return str
	}

	outputBytes, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		logger.Error("Error marshalling output",
			"error", err,
			"type", fmt.Sprintf("%T", o),
			"value", fmt.Sprintf("%+v", o))
		return ""
	}

	if len(outputBytes) > 1 && outputBytes[0] == '"' && outputBytes[len(outputBytes)-1] == '"' {
		return string(outputBytes[1 : len(outputBytes)-1])
	}

	return string(outputBytes)
}

// Render converts a result into the content blocks of a tools/call
// response and reports whether the envelope must be flagged as an error.
func Render(logger *slog.Logger, result *ToolResult) (Contents, bool) {
	switch {
	case result == nil:
		return Contents{TextContent("")}, false
	case len(result.Content) > 0:
		return result.Content, false
	case result.Error != nil:
		return Contents{TextContent(*result.Error)}, true
	case result.Output != nil:
		return Contents{TextContent(MarshalOutput(logger, result.Output))}, false
	case result.System != nil:
		return Contents{TextContent(*result.System)}, false
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return Contents{TextContent("Error serializing result")}, true
	}
	return Contents{TextContent(string(resultBytes))}, false
}
