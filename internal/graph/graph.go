// Package graph implements the request-scoped graph assembly engine:
// a deduplicated in-memory node/edge store and the traversal operations
// that populate it from relational rows.
package graph

import (
	"sync"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/models"
)

// Node is one graph vertex, keyed by its entity id. X and Y are only set
// when a layout enrichment pass ran.
type Node struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Name        string   `json:"name"`
	Resource    string   `json:"resource"`
	Description string   `json:"description,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
}

// Edge is one directed typed edge. Identity is the
// (SourceID, TargetID, RelType) triple.
type Edge struct {
	SourceID    string  `json:"source_id"`
	TargetID    string  `json:"target_id"`
	RelType     string  `json:"relation_type"`
	Score       float64 `json:"score"`
	KeySentence string  `json:"key_sentence,omitempty"`
	Resource    string  `json:"resource,omitempty"`
}

type edgeKey struct {
	sourceID string
	targetID string
	relType  string
}

// Graph is the serializable snapshot handed back to callers.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// store is the deduplicated node/edge collection behind a Builder. Merges
// are last-write-wins per identity key; first-merge order is preserved so
// snapshots serialize deterministically.
type store struct {
	mu        sync.Mutex
	nodes     map[string]Node
	nodeOrder []string
	edges     map[edgeKey]Edge
	edgeOrder []edgeKey
	finalized bool
}

func newStore() *store {
	return &store{
		nodes: make(map[string]Node),
		edges: make(map[edgeKey]Edge),
	}
}

// mergeNodes upserts nodes by id. Re-merging an id replaces its
// attributes (deterministic last-write-wins), never duplicates the key.
func (s *store) mergeNodes(nodes []Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return kgerr.ErrFinalized
	}
	for _, n := range nodes {
		if _, seen := s.nodes[n.ID]; !seen {
			s.nodeOrder = append(s.nodeOrder, n.ID)
		}
		s.nodes[n.ID] = n
	}
	return nil
}

// mergeEdges upserts edges by their identity triple.
func (s *store) mergeEdges(edges []Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return kgerr.ErrFinalized
	}
	for _, e := range edges {
		key := edgeKey{sourceID: e.SourceID, targetID: e.TargetID, relType: e.RelType}
		if _, seen := s.edges[key]; !seen {
			s.edgeOrder = append(s.edgeOrder, key)
		}
		s.edges[key] = e
	}
	return nil
}

// snapshot copies the current contents into an immutable Graph. Later
// merges do not affect snapshots already taken.
func (s *store) snapshot() Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := Graph{
		Nodes: make([]Node, 0, len(s.nodeOrder)),
		Edges: make([]Edge, 0, len(s.edgeOrder)),
	}
	for _, id := range s.nodeOrder {
		g.Nodes = append(g.Nodes, s.nodes[id])
	}
	for _, key := range s.edgeOrder {
		g.Edges = append(g.Edges, s.edges[key])
	}
	return g
}

// nodeIDs returns the current node ids in merge order.
func (s *store) nodeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.nodeOrder...)
}

// setCoordinates attaches layout coordinates to the nodes present in
// coords; nodes without an entry keep nil coordinates.
func (s *store) setCoordinates(coords map[string][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, xy := range coords {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		x, y := xy[0], xy[1]
		n.X, n.Y = &x, &y
		s.nodes[id] = n
	}
}

// finalize marks the store immutable and returns the final snapshot.
func (s *store) finalize() Graph {
	s.mu.Lock()
	s.finalized = true
	s.mu.Unlock()
	return s.snapshot()
}

// NodeFromEntity converts an entity row into a graph node.
func NodeFromEntity(e models.Entity) Node {
	return Node{
		ID:          e.ID,
		Label:       e.Label,
		Name:        e.Name,
		Resource:    e.Resource,
		Description: e.Description,
	}
}

// EdgeFromRelation converts a relation row into a graph edge.
func EdgeFromRelation(r models.Relation) Edge {
	return Edge{
		SourceID:    r.SourceID,
		TargetID:    r.TargetID,
		RelType:     r.RelType,
		Score:       r.Score,
		KeySentence: r.KeySentence,
		Resource:    r.Resource,
	}
}
