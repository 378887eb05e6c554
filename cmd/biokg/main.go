package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/config"
	"github.com/biokgraph/biokg/internal/logger"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/server"
	"github.com/biokgraph/biokg/internal/storage"
	"github.com/biokgraph/biokg/internal/tools"
)

func main() {
	transport := flag.String("transport", "http", "Transport mode: http, mcp-stdio or mcp-http")
	mcpPort := flag.String("mcp-port", "8081", "MCP HTTP port (only used with --transport mcp-http)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Env); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	zlog := logger.Get()

	store, err := storage.Open(cfg.DatabasePath, cfg.MaxOpenConns, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()
	store.SetMaxFilterDepth(cfg.MaxFilterDepth)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *transport {
	case "http":
		patterns, err := models.DefaultPatterns()
		if err != nil {
			zlog.Fatal("failed to compile patterns", zap.Error(err))
		}
		validate, err := models.NewValidator(patterns)
		if err != nil {
			zlog.Fatal("failed to build validator", zap.Error(err))
		}
		srv := server.New(cfg, store, validate, zlog)
		if err := srv.Run(ctx); err != nil {
			zlog.Fatal("http server error", zap.Error(err))
		}
	case "mcp-stdio":
		zlog.Info("mcp server starting (stdio)")
		srv := tools.NewServer(cfg, store)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			zlog.Fatal("mcp server error", zap.Error(err))
		}
	case "mcp-http":
		srv := tools.NewServer(cfg, store)
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		addr := ":" + *mcpPort
		zlog.Info("mcp server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, handler); err != nil {
			zlog.Fatal("mcp http server error", zap.Error(err))
		}
	default:
		zlog.Fatal("unknown transport (use http, mcp-stdio or mcp-http)", zap.String("transport", *transport))
	}
}
