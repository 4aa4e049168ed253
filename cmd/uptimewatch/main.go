package main

//	@title			Uptimewatch API
//	@version		0.1.0
//	@description	Live health status, badges and transition stream for monitored endpoints.
//	@BasePath		/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/HerbHall/uptimewatch/api/swagger"
	"github.com/HerbHall/uptimewatch/internal/config"
	"github.com/HerbHall/uptimewatch/internal/event"
	"github.com/HerbHall/uptimewatch/internal/pulse"
	"github.com/HerbHall/uptimewatch/internal/server"
	"github.com/HerbHall/uptimewatch/internal/version"
	"github.com/HerbHall/uptimewatch/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("uptimewatch starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	cfg, err := config.Decode(viperCfg)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	bus := event.NewBus(logger.Named("event"))

	monitor, err := pulse.NewMonitor(cfg.Monitor, bus, logger.Named("pulse"))
	if err != nil {
		logger.Fatal("failed to create monitor", zap.Error(err))
	}
	if len(monitor.Targets()) == 0 {
		logger.Warn("no targets configured", zap.String("component", "pulse"))
	}

	prometheus.MustRegister(pulse.NewStatusCollector(monitor.Store()))

	wsHandler := ws.NewHandler(bus, logger.Named("ws"))
	defer wsHandler.Close()

	addr := cfg.Server.Addr()
	srv := server.New(addr, logger.Named("server"), monitor.Ready,
		server.RateLimit{RPS: cfg.Server.RateLimitRPS, Burst: cfg.Server.RateLimitBurst},
		cfg.Server.DevMode,
		pulse.NewHandler(monitor.Store(), logger.Named("pulse-api")),
		wsHandler,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := monitor.Start(ctx); err != nil {
		logger.Fatal("failed to start monitor", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("uptimewatch ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	monitor.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("uptimewatch stopped")
}
