package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhogg/mindspace/internal/api"
	"github.com/nidhogg/mindspace/internal/clock"
	"github.com/nidhogg/mindspace/internal/config"
	"github.com/nidhogg/mindspace/internal/engine"
	"github.com/nidhogg/mindspace/internal/gateway"
	"github.com/nidhogg/mindspace/internal/temporal"
	"github.com/nidhogg/mindspace/internal/workspace"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Mindspace...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/mindspace.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Build the arbitration engine from configured producers and caps
	producers := make(map[string]float64, len(cfg.Producers))
	for _, p := range cfg.Producers {
		producers[p.ID] = p.ConnectionStrength
	}
	eng := engine.New(engine.Config{
		Workspace: workspace.Config{
			FocusCap:  cfg.Workspace.FocusCap,
			RetainCap: cfg.Workspace.RetainCap,
		},
		Temporal: temporal.Config{
			RetainCap: cfg.Temporal.RetainCap,
			Decay: temporal.DecayConfig{
				HalfLifeFactor: cfg.Temporal.DecayHalfLife,
				MinStrength:    cfg.Temporal.DecayFloor,
			},
		},
		RelevanceThreshold: cfg.Temporal.RelevanceThreshold,
		Producers:          producers,
	}, logger)
	eng.Initialize(time.Now())

	// Broadcast fan-out: websocket hub always, Redis stream when enabled
	broadcaster := gateway.NewBroadcaster(logger)
	hub := gateway.NewHub(logger)
	broadcaster.Register(hub)

	if cfg.Broadcast.Redis.Enabled {
		pub, pubErr := gateway.NewRedisPublisher(cfg.Broadcast.Redis.URL, cfg.Broadcast.Redis.Stream, logger)
		if pubErr != nil {
			logger.Warn("Redis unavailable, broadcasting to websocket only", zap.Error(pubErr))
		} else {
			broadcaster.Register(pub)
		}
	}

	eng.SetOnTick(func(snap engine.Snapshot) {
		if err := broadcaster.Send(context.Background(), gateway.UpdateSnapshot, snap); err != nil {
			logger.Warn("snapshot broadcast failed", zap.Error(err))
		}
	})

	// Drive the engine from the shared clock
	clk := clock.New(cfg.Clock.Interval(), cfg.Clock.Speed, logger)
	clk.AddListener(eng)
	clk.Start()
	logger.Info("Arbitration loop started",
		zap.Duration("interval", cfg.Clock.Interval()),
		zap.Float64("speed", cfg.Clock.Speed))

	// Build HTTP handler
	handler := api.NewHandler(eng, clk, broadcaster, hub, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Mindspace listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Mindspace...")
	clk.Stop()
	srv.Shutdown(context.Background())
	broadcaster.Close()
}
