// Package server exposes the knowledge graph over HTTP: paged list
// queries, curation and subgraph CRUD, and the graph assembly endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/config"
	"github.com/biokgraph/biokg/internal/metrics"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/storage"
)

// Server wires the storage layer to the HTTP surface.
type Server struct {
	cfg      *config.Config
	store    *storage.Store
	validate *models.Validator
	log      *zap.Logger
	engine   *gin.Engine
}

// New builds the router with all middleware and routes registered.
func New(cfg *config.Config, store *storage.Store, validate *models.Validator, log *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		validate: validate,
		log:      log,
		engine:   gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(log))
	s.engine.Use(corsMiddleware())
	s.engine.Use(metrics.Middleware())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", metrics.Handler())

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/entities", s.listEntities)
		v1.GET("/relations", s.listRelations)
		v1.GET("/entity-metadata", s.entityMetadata)
		v1.GET("/relation-metadata", s.relationMetadata)
		v1.GET("/entity2d", s.listEntity2D)

		v1.GET("/curated-knowledges", s.listCurations)
		v1.POST("/curated-knowledges", s.createCuration)
		v1.PUT("/curated-knowledges/:id", s.updateCuration)
		v1.DELETE("/curated-knowledges/:id", s.deleteCuration)

		v1.GET("/subgraphs", s.listSubgraphs)
		v1.POST("/subgraphs", s.createSubgraph)
		v1.PUT("/subgraphs/:id", s.updateSubgraph)
		v1.DELETE("/subgraphs/:id", s.deleteSubgraph)

		v1.GET("/nodes", s.fetchNodes)
		v1.GET("/auto-connect-nodes", s.autoConnectNodes)
		v1.GET("/one-step-linked-nodes", s.linkedNodes)
		v1.GET("/similarity-nodes", s.similarityNodes)
	}
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
