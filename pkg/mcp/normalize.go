package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NormalizeToolList converts a remote tool listing into an ordered []Tool.
//
// Two shapes are accepted: a bare sequence of tools, or an object that wraps
// the sequence under a "tools" field. The concrete Go representation may be
// SDK types, []Tool, generic JSON values (map[string]any / []any) or raw JSON
// bytes. nil yields an empty list. Order is preserved and every descriptor
// must have a non-empty name.
func NormalizeToolList(raw any) ([]Tool, error) {
	switch v := raw.(type) {
	case nil:
		return []Tool{}, nil
	case []Tool:
		return checkNames(append([]Tool(nil), v...))
	case *mcp.ListToolsResult:
		if v == nil {
			return []Tool{}, nil
		}
		return fromSDKTools(v.Tools)
	case mcp.ListToolsResult:
		return fromSDKTools(v.Tools)
	case []*mcp.Tool:
		return fromSDKTools(v)
	case json.RawMessage:
		return normalizeJSON(v)
	case []byte:
		return normalizeJSON(v)
	case string:
		return normalizeJSON([]byte(v))
	}

	// Generic values (maps, []any, arbitrary structs) go through JSON.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("unsupported tool list type %T: %w", raw, err)
	}
	return normalizeJSON(data)
}

func normalizeJSON(data []byte) ([]Tool, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse tool list: %w", err)
	}

	var tools []Tool
	switch p := probe.(type) {
	case nil:
		return []Tool{}, nil
	case []any:
		if err := json.Unmarshal(data, &tools); err != nil {
			return nil, fmt.Errorf("failed to decode tool sequence: %w", err)
		}
	case map[string]any:
		inner, ok := p["tools"]
		if !ok {
			return nil, fmt.Errorf("tool list object has no tools field")
		}
		if inner == nil {
			return []Tool{}, nil
		}
		if _, ok := inner.([]any); !ok {
			return nil, fmt.Errorf("tools field is %T, want a sequence", inner)
		}
		var wrapped struct {
			Tools []Tool `json:"tools"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode wrapped tool list: %w", err)
		}
		tools = wrapped.Tools
	default:
		return nil, fmt.Errorf("unsupported tool list shape %T", probe)
	}

	if tools == nil {
		tools = []Tool{}
	}
	return checkNames(tools)
}

func fromSDKTools(in []*mcp.Tool) ([]Tool, error) {
	tools := make([]Tool, 0, len(in))
	for _, t := range in {
		if t == nil {
			continue
		}
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}
	return checkNames(tools)
}

func checkNames(tools []Tool) ([]Tool, error) {
	for i, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool at index %d has no name", i)
		}
	}
	return tools, nil
}

func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return nil
	}
	return m
}
