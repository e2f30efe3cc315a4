package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/logger"
	"beacon-alerts/internal/notifier"
	"beacon-alerts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "beacon-alerts")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	var n notifier.Notifier
	if cfg.Notifier.AccountSID != "" {
		n = notifier.NewSMSNotifier(cfg, log)
	} else {
		// No SMS credentials: log outbound messages instead of sending.
		log.Warn("SMS credentials not configured, using log notifier")
		n = notifier.NewLogNotifier(log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := service.New(ctx, cfg, n, log)
	if err != nil {
		log.Fatal("Failed to create service", zap.Error(err))
	}
	defer svc.Stop()

	serviceErrChan := make(chan error, 1)
	go func() {
		if err := svc.Start(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-serviceErrChan:
		log.Fatal("Service error", zap.Error(err))
	}

	log.Info("beacon-alerts stopped")
}
