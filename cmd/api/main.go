package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vote-ledger/api"
	"vote-ledger/config"
	"vote-ledger/logs"
	"vote-ledger/service"
	"vote-ledger/storage"
)

const shutdownTimeout = 10 * time.Second

func parseFlags() (*config.Config, error) {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		storageDir = flag.String("storage", "", "Directory for audit exports")
		port       = flag.Int("port", 0, "Server port")
		difficulty = flag.Int("difficulty", -1, "Leading zero hex digits required per block (0-64)")
		encoder    = flag.String("encoder", "", "Vote encoding: RSA2048 (simulated) or ECIES (sealed)")
		session    = flag.Duration("session", 0, "Voting session duration")
		logLevel   = flag.String("log-level", "", "debug, info, warning or error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	// Flags win over the file, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "storage":
			cfg.StorageDir = *storageDir
		case "port":
			cfg.Port = *port
		case "difficulty":
			cfg.Difficulty = *difficulty
		case "encoder":
			cfg.Encoder = *encoder
		case "session":
			cfg.SessionDuration = *session
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, cfg.Validate()
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !logs.SetLevel(cfg.LogLevel) {
		logs.Warn("Unknown log level %q, keeping default", cfg.LogLevel)
	}

	storageDir, err := filepath.Abs(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to resolve storage directory: %v", err)
	}
	store, err := storage.New(filepath.Join(storageDir, "audit"))
	if err != nil {
		log.Fatalf("Failed to setup storage: %v", err)
	}

	votingService, err := service.NewVotingService(cfg, store)
	if err != nil {
		log.Fatalf("Failed to initialize voting service: %v", err)
	}

	queue := service.NewQueueProcessor(votingService, cfg.QueueSize, 0)
	queue.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewServer(votingService, queue).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		logs.Info("Starting server on port %d...", cfg.Port)
		serverChan <- server.ListenAndServe()
	}()

	select {
	case err := <-serverChan:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigChan:
		logs.Info("Received signal: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logs.Error("HTTP shutdown: %v", err)
	}
	queue.Stop()
	votingService.EndVotingSession()

	if result := votingService.ValidateChain(); !result.IsValid {
		logs.Error("Ledger invalid at shutdown: %s at block %d", result.Reason, result.FirstInvalidIndex)
	}
	if _, path, err := votingService.SaveAudit(); err != nil {
		logs.Error("Failed to save final audit export: %v", err)
	} else {
		logs.Info("Final audit export written to %s", path)
	}
	logs.Info("Server shutdown completed")
}
