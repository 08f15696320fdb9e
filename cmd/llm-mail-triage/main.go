package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-mail-triage/internal/adapters/web"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	server *web.Server,
	llmClient core.LLMClient,
	cache core.VerdictCache,
) error {
	defer logger.Sync()

	// Start the web server
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop web server", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
