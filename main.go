package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/gravesugoroku/config"
	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/monitor"
	"github.com/wfunc/gravesugoroku/persistence"
	"github.com/wfunc/gravesugoroku/server"
	"github.com/wfunc/gravesugoroku/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Log.File != "" {
		if err := logger.InitFile(cfg.Log.File, cfg.Log.Level); err != nil {
			logger.Log.Fatalf("Failed to open log file: %v", err)
		}
	}
	defer logger.Sync()

	// Initialize Database
	pg := cfg.Database.Postgres
	db, err := persistence.Open(cfg.Database.Driver, pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Infof("Archive backend %q ready.", cfg.Database.Driver)
	archive := services.NewArchive(db, cfg.Database.ArchiveBuffer)

	mon := monitor.NewMonitor("sugoroku")
	metricsServer := mon.StartServer(cfg.Server.MetricsAddress)
	logger.Log.Infof("Metrics on %s", cfg.Server.MetricsAddress)

	gameServer, err := server.NewGameServer(server.Options{
		Addr:        cfg.Server.HTTPAddress,
		RPCAddr:     cfg.Server.RPCAddress,
		Heartbeat:   cfg.Server.Heartbeat,
		OrphanGrace: cfg.Server.OrphanGrace,
		Room:        cfg.RoomOptions(),
	}, archive, mon)
	if err != nil {
		logger.Log.Fatalf("Failed to create server: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Log.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gameServer.Shutdown(ctx); err != nil {
			logger.Log.Warnf("Server shutdown: %v", err)
		}
		metricsServer.Shutdown(ctx)
	}()

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
	<-stopped

	if err := archive.Close(); err != nil {
		logger.Log.Warnf("Archive close: %v", err)
	}
	if dropped := archive.Dropped(); dropped > 0 {
		logger.Log.Warnf("Archive dropped %d records", dropped)
	}
	if err := db.Close(); err != nil {
		logger.Log.Warnf("Database close: %v", err)
	}
}
