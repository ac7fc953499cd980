package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plume/internal/cache"
	"plume/internal/config"
	"plume/internal/middleware"
	"plume/internal/observability"
	"plume/internal/server"
)

//	@title			Plume API
//	@version		1.0
//	@description	Microblogging backend: posts, replies, search and engagement ranking.
//	@BasePath		/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "plume-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		middleware.Logger.Error("failed to initialize tracing", "error", err.Error())
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		middleware.Logger.Error("failed to build server", "error", err.Error())
		os.Exit(1)
	}

	go func() {
		middleware.Logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.Start(); err != nil {
			middleware.Logger.Error("server stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	middleware.Logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		middleware.Logger.Error("graceful shutdown failed", "error", err.Error())
	}
	if err := shutdownTracing(ctx); err != nil {
		middleware.Logger.Error("tracing shutdown failed", "error", err.Error())
	}
	cache.Close()
}
