package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/biokgraph/biokg/internal/config"
	"github.com/biokgraph/biokg/internal/storage"
)

// NewServer creates a fully configured MCP server with all knowledge
// graph tools registered.
func NewServer(cfg *config.Config, store *storage.Store) *mcp.Server {
	gt := &GraphTools{
		Store:       store,
		MaxPageSize: cfg.MaxPageSize,
		DefaultTopK: cfg.DefaultTopK,
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "biokg",
		Version: "0.1.0",
	}, nil)

	// List queries
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "query_entities",
		Description: "Query biomedical entities (diseases, genes, chemicals, ...) with an optional JSON filter and pagination",
	}, gt.QueryEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "query_relations",
		Description: "Query typed relations between entities with an optional JSON filter and pagination",
	}, gt.QueryRelations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_metadata",
		Description: "List entity counts per resource and entity type",
	}, gt.EntityMetadata)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "relation_metadata",
		Description: "List relation counts per resource, relation type and endpoint types",
	}, gt.RelationMetadata)

	// Graph assembly
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "fetch_nodes",
		Description: "Assemble a graph containing the given entity ids as nodes (unknown ids are skipped)",
	}, gt.FetchNodes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "auto_connect_nodes",
		Description: "Assemble a graph of the given entities plus every relation whose endpoints are both in the set",
	}, gt.AutoConnectNodes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "expand_linked_nodes",
		Description: "Assemble a graph from relations matching a filter, pulling in both endpoints of each relation (pagination bounds relations, not nodes)",
	}, gt.ExpandLinkedNodes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "similarity_nodes",
		Description: "Assemble a star graph of an entity and its precomputed nearest neighbors, one weighted similar_with edge per neighbor",
	}, gt.SimilarityNodes)

	return srv
}
