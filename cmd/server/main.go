package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment variables
	port := flag.String("port", cfg.Server.Port, "Server port")
	root := flag.String("root", cfg.Storage.Root, "Storage root directory")
	backend := flag.String("backend", cfg.Storage.Backend, "Storage backend (local, memory)")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (console logs, debug level)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Storage.Root = *root
	cfg.Storage.Backend = *backend
	cfg.Logging.Development = *dev

	// -dev switches to the development profile, which brings debug level
	// unless LOG_LEVEL was set explicitly.
	level := cfg.Logging.Level
	if _, set := os.LookupEnv("LOG_LEVEL"); *dev && !set {
		level = ""
	}
	logger, err := logging.New(logging.ConfigFor(cfg.Logging.Development, level))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		srv.Close()
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}
}
