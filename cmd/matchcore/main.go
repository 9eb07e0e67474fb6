// Command matchcore wires up and runs a matching engine instance. It exists
// only as a minimal external collaborator exercising engine.Engine's public
// surface — a CLI harness, synthetic feed generator, and statistics
// printer are all outside this project's scope.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"matchcore/engine"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	cfg, err := engine.LoadConfig(".env")
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	eng, err := engine.NewEngine(cfg, logger, "./data/journal", "./data/ledger")
	if err != nil {
		logger.Fatal("engine init failed", zap.Error(err))
	}

	eng.Start()
	logger.Info("matchcore engine running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	eng.Shutdown()
}
