package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/celestiaorg/shelver/internal/app"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/logger"
)

func main() {
	// A .env file is optional; the environment wins when both are set
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	// Missing settings are answered per request with a configuration error,
	// so the server still starts and reports them
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Warn("configuration incomplete")
	}
	log.WithFields(toFields(cfg.GetEnvironmentVars())).Debug("configuration loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	fiberApp := app.NewApp(cfg, log, reg, nil)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down server")
		if err := fiberApp.Shutdown(); err != nil {
			log.WithError(err).Error("error during shutdown")
		}
	}()

	log.WithField("addr", cfg.ListenAddr).Info("starting server")
	if err := fiberApp.Listen(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func toFields(vars map[string]string) map[string]interface{} {
	fields := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		fields[k] = v
	}
	return fields
}
