package mcp

import (
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToolList(t *testing.T) {
	want := []string{"read_file", "write_file", "list_directory"}

	tests := []struct {
		name string
		raw  any
	}{
		{
			name: "bare json sequence",
			raw:  `[{"name":"read_file"},{"name":"write_file"},{"name":"list_directory"}]`,
		},
		{
			name: "wrapped json object",
			raw:  json.RawMessage(`{"tools":[{"name":"read_file"},{"name":"write_file"},{"name":"list_directory"}],"nextCursor":""}`),
		},
		{
			name: "generic sequence",
			raw: []any{
				map[string]any{"name": "read_file"},
				map[string]any{"name": "write_file"},
				map[string]any{"name": "list_directory"},
			},
		},
		{
			name: "generic wrapped",
			raw: map[string]any{"tools": []map[string]any{
				{"name": "read_file"}, {"name": "write_file"}, {"name": "list_directory"},
			}},
		},
		{
			name: "sdk result",
			raw: &mcp.ListToolsResult{Tools: []*mcp.Tool{
				{Name: "read_file"}, {Name: "write_file"}, {Name: "list_directory"},
			}},
		},
		{
			name: "sdk slice",
			raw:  []*mcp.Tool{{Name: "read_file"}, {Name: "write_file"}, {Name: "list_directory"}},
		},
		{
			name: "already normalized",
			raw:  []Tool{{Name: "read_file"}, {Name: "write_file"}, {Name: "list_directory"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools, err := NormalizeToolList(tt.raw)
			require.NoError(t, err)
			names := make([]string, len(tools))
			for i, tool := range tools {
				names[i] = tool.Name
			}
			assert.Equal(t, want, names)
		})
	}
}

func TestNormalizeToolList_KeepsDescriptionAndSchema(t *testing.T) {
	tools, err := NormalizeToolList(&mcp.ListToolsResult{Tools: []*mcp.Tool{{
		Name:        "read_graph",
		Description: "Read the entire knowledge graph",
		InputSchema: map[string]any{"type": "object"},
	}}})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "Read the entire knowledge graph", tools[0].Description)
	assert.Equal(t, "object", tools[0].InputSchema["type"])
}

func TestNormalizeToolList_Empty(t *testing.T) {
	for _, raw := range []any{nil, `[]`, `{"tools":[]}`, `{"tools":null}`, `null`, (*mcp.ListToolsResult)(nil)} {
		tools, err := NormalizeToolList(raw)
		require.NoError(t, err, "%#v", raw)
		assert.NotNil(t, tools)
		assert.Empty(t, tools)
	}
}

func TestNormalizeToolList_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		wantErr string
	}{
		{"object without tools", `{"items":[]}`, "no tools field"},
		{"tools not a sequence", `{"tools":{"name":"x"}}`, "want a sequence"},
		{"scalar", `42`, "unsupported tool list shape"},
		{"malformed", `[{`, "failed to parse tool list"},
		{"missing name", `[{"description":"anonymous"}]`, "has no name"},
		{"unmarshalable", make(chan int), "unsupported tool list type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeToolList(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
