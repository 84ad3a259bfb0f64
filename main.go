package main

import (
	"github.com/puzzlehub/relay/config"
	"github.com/puzzlehub/relay/logger"
	"github.com/puzzlehub/relay/monitor"
	"github.com/puzzlehub/relay/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize monitoring
	mon := monitor.NewMonitor("puzzlerelay")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize relay server
	relayServer := server.NewRelayServer(cfg, mon)

	// Start server
	logger.Log.Infof("Starting relay server on %s", cfg.Server.HTTPAddress)
	if err := relayServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
