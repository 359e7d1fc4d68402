// Package main provides the plaza server binary: an authoritative shared
// room where connected clients move and chat by proximity over WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inspiredrishabh/plaza/internal/config"
	"github.com/inspiredrishabh/plaza/internal/hub"
	"github.com/inspiredrishabh/plaza/internal/observability"
	"github.com/inspiredrishabh/plaza/internal/server"
	"github.com/inspiredrishabh/plaza/internal/session"
	"github.com/inspiredrishabh/plaza/internal/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/plaza.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting plaza server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("room_width", cfg.Room.Width),
		zap.Int("room_height", cfg.Room.Height),
		zap.Int("proximity_radius", cfg.Proximity.Radius),
	)

	registry := session.NewRegistry(
		session.Room{Width: cfg.Room.Width, Height: cfg.Room.Height},
		cfg.Limits.MaxNameLength,
	)
	router := hub.New()
	wsServer := ws.NewServer(cfg, registry, router, logger)
	monitor := hub.NewMonitor(router, registry, cfg.Heartbeat.Interval, cfg.Heartbeat.TTL, logger)

	lc := server.NewLifecycle(logger)
	lc.Add("websocket", &server.FuncService{
		StartFn: wsServer.ListenAndServe,
		StopFn:  wsServer.Stop,
	})
	lc.Add("heartbeat", monitor)

	logger.Info("components wired", zap.Duration("elapsed", time.Since(start)))

	if err := lc.Run(context.Background()); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
