package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/graph"
	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/metrics"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
	"github.com/biokgraph/biokg/internal/storage"
)

// respondError maps the error taxonomy onto HTTP statuses: caller input
// faults are 400, missing rows 404, everything else 500.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case kgerr.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, kgerr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	c.Error(err)
}

func parseFilter(c *gin.Context) (*query.Node, error) {
	return query.Parse(c.Query("query_str"))
}

func parsePagination(c *gin.Context, maxPageSize uint64) (*storage.Pagination, error) {
	page, err := parseUintParam(c, "page")
	if err != nil {
		return nil, err
	}
	pageSize, err := parseUintParam(c, "page_size")
	if err != nil {
		return nil, err
	}
	return storage.NewPagination(page, pageSize, maxPageSize)
}

func parseUintParam(c *gin.Context, name string) (*uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer", kgerr.ErrInvalidPagination, name)
	}
	return &v, nil
}

// parseNodeIDs splits the comma-separated node_ids parameter. An empty
// parameter yields an empty id list, which assembles an empty graph.
func parseNodeIDs(c *gin.Context) []string {
	var ids []string
	for _, id := range strings.Split(c.Query("node_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseLayout(c *gin.Context) *string {
	if layout := c.Query("layout"); layout != "" {
		return &layout
	}
	return nil
}

func (s *Server) listEntities(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pg, err := parsePagination(c, s.cfg.MaxPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	page, err := s.store.Entities(c.Request.Context(), filter, pg, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) listRelations(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pg, err := parsePagination(c, s.cfg.MaxPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	page, err := s.store.Relations(c.Request.Context(), filter, pg, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) entityMetadata(c *gin.Context) {
	records, err := s.store.EntityMetadata(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) relationMetadata(c *gin.Context) {
	records, err := s.store.RelationMetadata(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) listEntity2D(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pg, err := parsePagination(c, s.cfg.MaxPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	page, err := s.store.Entity2D(c.Request.Context(), filter, pg, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) listCurations(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pg, err := parsePagination(c, s.cfg.MaxPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	page, err := s.store.Curations(c.Request.Context(), filter, pg, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) createCuration(c *gin.Context) {
	var k models.KnowledgeCuration
	if err := c.ShouldBindJSON(&k); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	if err := s.validate.Struct(&k); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.store.InsertCuration(c.Request.Context(), &k)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateCuration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	var k models.KnowledgeCuration
	if err := c.ShouldBindJSON(&k); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	if err := s.validate.Struct(&k); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.UpdateCuration(c.Request.Context(), id, &k)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteCuration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	if err := s.store.DeleteCuration(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listSubgraphs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pg, err := parsePagination(c, s.cfg.MaxPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	page, err := s.store.Subgraphs(c.Request.Context(), filter, pg, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) createSubgraph(c *gin.Context) {
	var g models.Subgraph
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	if err := s.validate.Struct(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.store.InsertSubgraph(c.Request.Context(), &g)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateSubgraph(c *gin.Context) {
	var g models.Subgraph
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	updated, err := s.store.UpdateSubgraph(c.Request.Context(), c.Param("id"), &g)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteSubgraph(c *gin.Context) {
	if err := s.store.DeleteSubgraph(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) fetchNodes(c *gin.Context) {
	b := graph.NewBuilder(s.store)
	err := b.FetchNodesByIDs(c.Request.Context(), parseNodeIDs(c))
	metrics.ObserveAssembly("fetch_nodes", err)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.finishGraph(c, b)
}

func (s *Server) autoConnectNodes(c *gin.Context) {
	b := graph.NewBuilder(s.store)
	err := b.AutoConnectNodes(c.Request.Context(), parseNodeIDs(c))
	metrics.ObserveAssembly("auto_connect_nodes", err)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.finishGraph(c, b)
}

func (s *Server) linkedNodes(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pg, err := parsePagination(c, s.cfg.MaxPageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}

	b := graph.NewBuilder(s.store)
	err = b.FetchLinkedNodes(c.Request.Context(), filter, pg)
	metrics.ObserveAssembly("linked_nodes", err)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.finishGraph(c, b)
}

func (s *Server) similarityNodes(c *gin.Context) {
	nodeID := c.Query("node_id")
	if nodeID == "" {
		s.respondError(c, kgerr.Malformedf("node_id is required"))
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	topK := s.cfg.DefaultTopK
	if raw := c.Query("topk"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || v == 0 {
			s.respondError(c, kgerr.Malformedf("topk must be a positive integer"))
			return
		}
		topK = v
	}

	b := graph.NewBuilder(s.store)
	err = b.FetchSimilarityNodes(c.Request.Context(), nodeID, filter, topK)
	metrics.ObserveAssembly("similarity_nodes", err)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.finishGraph(c, b)
}

// finishGraph finalizes the builder, applying an optional layout, and
// writes the assembled graph.
func (s *Server) finishGraph(c *gin.Context, b *graph.Builder) {
	g, err := b.Finalize(c.Request.Context(), parseLayout(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}
