// Package tools exposes the knowledge graph to MCP clients: list queries
// over the relational tables and the graph assembly operations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/biokgraph/biokg/internal/graph"
	"github.com/biokgraph/biokg/internal/query"
	"github.com/biokgraph/biokg/internal/storage"
)

// GraphTools holds references needed by knowledge graph tool handlers.
type GraphTools struct {
	Store       *storage.Store
	MaxPageSize uint64
	DefaultTopK uint64
}

// --- Input types ---

type QueryInput struct {
	Filter   string  `json:"filter,omitempty" jsonschema:"JSON filter tree, e.g. {\"operator\":\"eq\",\"field\":\"label\",\"value\":\"Disease\"}; and/or groups allowed"`
	Page     *uint64 `json:"page,omitempty" jsonschema:"Page number, starting at 1"`
	PageSize *uint64 `json:"page_size,omitempty" jsonschema:"Rows per page (default 10)"`
}

type NodeIDsInput struct {
	NodeIDs []string `json:"node_ids" jsonschema:"Entity ids, e.g. [\"DOID:2022\", \"ENTREZ:3569\"]"`
	Layout  string   `json:"layout,omitempty" jsonschema:"Optional 2D layout to join onto nodes: umap or tsne"`
}

type LinkedNodesInput struct {
	Filter   string  `json:"filter" jsonschema:"JSON filter tree over relation columns (relation_type, source_id, target_id, ...)"`
	Page     *uint64 `json:"page,omitempty" jsonschema:"Page number over matching relations, starting at 1"`
	PageSize *uint64 `json:"page_size,omitempty" jsonschema:"Relations per page (default 10)"`
	Layout   string  `json:"layout,omitempty" jsonschema:"Optional 2D layout to join onto nodes: umap or tsne"`
}

type SimilarityInput struct {
	NodeID string `json:"node_id" jsonschema:"Origin entity id"`
	Filter string `json:"filter,omitempty" jsonschema:"Optional JSON filter over neighbor entity columns"`
	TopK   uint64 `json:"topk,omitempty" jsonschema:"Maximum neighbors to return (default 10)"`
	Layout string `json:"layout,omitempty" jsonschema:"Optional 2D layout to join onto nodes: umap or tsne"`
}

func (t *GraphTools) parseQuery(in QueryInput) (*query.Node, *storage.Pagination, *mcp.CallToolResult) {
	filter, err := query.Parse(in.Filter)
	if err != nil {
		return nil, nil, toolError("Invalid filter: %v", err)
	}
	pg, err := storage.NewPagination(in.Page, in.PageSize, t.MaxPageSize)
	if err != nil {
		return nil, nil, toolError("Invalid pagination: %v", err)
	}
	return filter, pg, nil
}

func layoutPtr(layout string) *string {
	if layout == "" {
		return nil
	}
	return &layout
}

// --- Handlers ---

func (t *GraphTools) QueryEntities(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, any, error) {
	filter, pg, errResult := t.parseQuery(input)
	if errResult != nil {
		return errResult, nil, nil
	}
	page, err := t.Store.Entities(ctx, filter, pg, nil)
	if err != nil {
		return toolError("Failed to query entities: %v", err), nil, nil
	}
	return toolJSON(page)
}

func (t *GraphTools) QueryRelations(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, any, error) {
	filter, pg, errResult := t.parseQuery(input)
	if errResult != nil {
		return errResult, nil, nil
	}
	page, err := t.Store.Relations(ctx, filter, pg, nil)
	if err != nil {
		return toolError("Failed to query relations: %v", err), nil, nil
	}
	return toolJSON(page)
}

func (t *GraphTools) EntityMetadata(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	records, err := t.Store.EntityMetadata(ctx)
	if err != nil {
		return toolError("Failed to load entity metadata: %v", err), nil, nil
	}
	return toolJSON(records)
}

func (t *GraphTools) RelationMetadata(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	records, err := t.Store.RelationMetadata(ctx)
	if err != nil {
		return toolError("Failed to load relation metadata: %v", err), nil, nil
	}
	return toolJSON(records)
}

func (t *GraphTools) FetchNodes(ctx context.Context, _ *mcp.CallToolRequest, input NodeIDsInput) (*mcp.CallToolResult, any, error) {
	b := graph.NewBuilder(t.Store)
	if err := b.FetchNodesByIDs(ctx, input.NodeIDs); err != nil {
		return toolError("Failed to fetch nodes: %v", err), nil, nil
	}
	return t.finishGraph(ctx, b, input.Layout)
}

func (t *GraphTools) AutoConnectNodes(ctx context.Context, _ *mcp.CallToolRequest, input NodeIDsInput) (*mcp.CallToolResult, any, error) {
	b := graph.NewBuilder(t.Store)
	if err := b.AutoConnectNodes(ctx, input.NodeIDs); err != nil {
		return toolError("Failed to auto-connect nodes: %v", err), nil, nil
	}
	return t.finishGraph(ctx, b, input.Layout)
}

func (t *GraphTools) ExpandLinkedNodes(ctx context.Context, _ *mcp.CallToolRequest, input LinkedNodesInput) (*mcp.CallToolResult, any, error) {
	filter, err := query.Parse(input.Filter)
	if err != nil {
		return toolError("Invalid filter: %v", err), nil, nil
	}
	pg, err := storage.NewPagination(input.Page, input.PageSize, t.MaxPageSize)
	if err != nil {
		return toolError("Invalid pagination: %v", err), nil, nil
	}

	b := graph.NewBuilder(t.Store)
	if err := b.FetchLinkedNodes(ctx, filter, pg); err != nil {
		return toolError("Failed to expand linked nodes: %v", err), nil, nil
	}
	return t.finishGraph(ctx, b, input.Layout)
}

func (t *GraphTools) SimilarityNodes(ctx context.Context, _ *mcp.CallToolRequest, input SimilarityInput) (*mcp.CallToolResult, any, error) {
	if input.NodeID == "" {
		return toolError("node_id is required"), nil, nil
	}
	filter, err := query.Parse(input.Filter)
	if err != nil {
		return toolError("Invalid filter: %v", err), nil, nil
	}
	topK := input.TopK
	if topK == 0 {
		topK = t.DefaultTopK
	}

	b := graph.NewBuilder(t.Store)
	if err := b.FetchSimilarityNodes(ctx, input.NodeID, filter, topK); err != nil {
		return toolError("Failed to fetch similarity nodes: %v", err), nil, nil
	}
	return t.finishGraph(ctx, b, input.Layout)
}

func (t *GraphTools) finishGraph(ctx context.Context, b *graph.Builder, layout string) (*mcp.CallToolResult, any, error) {
	g, err := b.Finalize(ctx, layoutPtr(layout))
	if err != nil {
		return toolError("Failed to finalize graph: %v", err), nil, nil
	}
	return toolJSON(g)
}

// --- Result helpers ---

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
