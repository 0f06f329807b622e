package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "memory-server"
	serverVersion = "1.0.0"
)

const entitySchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "description": "The name of the entity"},
		"entityType": {"type": "string", "description": "The type of the entity"},
		"observations": {"type": "array", "items": {"type": "string"}, "description": "Observation contents associated with the entity"}
	},
	"required": ["name", "entityType", "observations"]
}`

const relationSchema = `{
	"type": "object",
	"properties": {
		"from": {"type": "string", "description": "The name of the entity where the relation starts"},
		"to": {"type": "string", "description": "The name of the entity where the relation ends"},
		"relationType": {"type": "string", "description": "The type of the relation"}
	},
	"required": ["from", "to", "relationType"]
}`

type toolDef struct {
	name        string
	description string
	schema      string
	handler     server.ToolHandlerFunc
}

// NewServer exposes kg as an MCP server with the knowledge-graph tool set.
func NewServer(kg *KnowledgeGraph) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	for _, def := range toolDefs(kg) {
		tool := mcp.NewToolWithRawSchema(def.name, def.description, json.RawMessage(def.schema))
		s.AddTool(tool, def.handler)
	}
	return s
}

// ToolNames lists the tools NewServer registers, in registration order.
func ToolNames() []string {
	defs := toolDefs(nil)
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.name
	}
	return names
}

func toolDefs(kg *KnowledgeGraph) []toolDef {
	h := &handlers{kg: kg}
	return []toolDef{
		{
			name:        "create_entities",
			description: "Create multiple new entities in the knowledge graph",
			schema:      `{"type": "object", "properties": {"entities": {"type": "array", "items": ` + entitySchema + `}}, "required": ["entities"]}`,
			handler:     h.createEntities,
		},
		{
			name:        "create_relations",
			description: "Create multiple new relations between entities in the knowledge graph. Relations should be in active voice",
			schema:      `{"type": "object", "properties": {"relations": {"type": "array", "items": ` + relationSchema + `}}, "required": ["relations"]}`,
			handler:     h.createRelations,
		},
		{
			name:        "add_observations",
			description: "Add new observations to existing entities in the knowledge graph",
			schema: `{"type": "object", "properties": {"observations": {"type": "array", "items": {"type": "object", "properties": {
				"entityName": {"type": "string", "description": "The name of the entity to add the observations to"},
				"contents": {"type": "array", "items": {"type": "string"}, "description": "The contents of the observations to add"}
			}, "required": ["entityName", "contents"]}}}, "required": ["observations"]}`,
			handler: h.addObservations,
		},
		{
			name:        "delete_entities",
			description: "Delete multiple entities and their associated relations from the knowledge graph",
			schema:      `{"type": "object", "properties": {"entityNames": {"type": "array", "items": {"type": "string"}, "description": "An array of entity names to delete"}}, "required": ["entityNames"]}`,
			handler:     h.deleteEntities,
		},
		{
			name:        "delete_observations",
			description: "Delete specific observations from entities in the knowledge graph",
			schema: `{"type": "object", "properties": {"deletions": {"type": "array", "items": {"type": "object", "properties": {
				"entityName": {"type": "string", "description": "The name of the entity containing the observations"},
				"observations": {"type": "array", "items": {"type": "string"}, "description": "An array of observations to delete"}
			}, "required": ["entityName", "observations"]}}}, "required": ["deletions"]}`,
			handler: h.deleteObservations,
		},
		{
			name:        "delete_relations",
			description: "Delete multiple relations from the knowledge graph",
			schema:      `{"type": "object", "properties": {"relations": {"type": "array", "items": ` + relationSchema + `, "description": "An array of relations to delete"}}, "required": ["relations"]}`,
			handler:     h.deleteRelations,
		},
		{
			name:        "read_graph",
			description: "Read the entire knowledge graph",
			schema:      `{"type": "object", "properties": {}}`,
			handler:     h.readGraph,
		},
		{
			name:        "search_nodes",
			description: "Search for nodes in the knowledge graph based on a query",
			schema:      `{"type": "object", "properties": {"query": {"type": "string", "description": "The search query to match against entity names, types, and observation content"}}, "required": ["query"]}`,
			handler:     h.searchNodes,
		},
		{
			name:        "open_nodes",
			description: "Open specific nodes in the knowledge graph by their names",
			schema:      `{"type": "object", "properties": {"names": {"type": "array", "items": {"type": "string"}, "description": "An array of entity names to retrieve"}}, "required": ["names"]}`,
			handler:     h.openNodes,
		},
	}
}

type handlers struct {
	kg *KnowledgeGraph
}

func (h *handlers) createEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Entities []Entity `json:"entities"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created, err := h.kg.CreateEntities(ctx, args.Entities)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(created)
}

func (h *handlers) createRelations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Relations []Relation `json:"relations"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created, err := h.kg.CreateRelations(ctx, args.Relations)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(created)
}

func (h *handlers) addObservations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Observations []ObservationAddition `json:"observations"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := h.kg.AddObservations(ctx, args.Observations)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (h *handlers) deleteEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		EntityNames []string `json:"entityNames"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.kg.DeleteEntities(ctx, args.EntityNames); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Entities deleted successfully"), nil
}

func (h *handlers) deleteObservations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Deletions []ObservationDeletion `json:"deletions"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.kg.DeleteObservations(ctx, args.Deletions); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Observations deleted successfully"), nil
}

func (h *handlers) deleteRelations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Relations []Relation `json:"relations"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.kg.DeleteRelations(ctx, args.Relations); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Relations deleted successfully"), nil
}

func (h *handlers) readGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.kg.ReadGraph())
}

func (h *handlers) searchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(h.kg.SearchNodes(args.Query))
}

func (h *handlers) openNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Names []string `json:"names"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(h.kg.OpenNodes(args.Names))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
