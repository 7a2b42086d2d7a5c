// Package main provides the chat server binary that serves the
// JSON-over-WebSocket chat protocol.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/chat/room"
	"github.com/parley-chat/parley/internal/chat/session"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	directory := room.NewDirectory(cfg.Rooms, logger, metrics)
	sessions := session.NewRegistry()
	service := chat.NewService(sessions, directory, logger)

	handler := ws.NewHandler(service, cfg.Server, cfg.Rooms, logger, metrics)
	httpServer := ws.NewServer(cfg.Server, cfg.Metrics, handler, registry, logger)

	lifecycle := server.NewLifecycle(logger)

	roomsDone := make(chan struct{})
	lifecycle.Add("rooms", &server.FuncService{
		StartFn: func() error {
			<-roomsDone
			return nil
		},
		StopFn: func() {
			directory.Close()
			close(roomsDone)
		},
	})

	lifecycle.Add("http", httpServer)

	logger.Info("chat server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("wsPath", cfg.Server.WSPath),
		zap.Int("shards", cfg.Rooms.Shards),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
