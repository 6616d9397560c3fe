package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "agent server port")
	nodeCount := flag.Int("nodes", 5, "number of simulated nodes")
	pattern := flag.String("pattern", "daily", "load pattern (steady, daily, weekly, sine)")
	baseCPU := flag.Float64("base-cpu", 50, "base cpu utilization")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting node agent simulator")

	nodes := make([]string, *nodeCount)
	for i := range nodes {
		nodes[i] = fmt.Sprintf("qnet-node-%d", i+1)
	}

	agents := simulator.NewAgentServer(simulator.AgentConfig{
		Port:    *port,
		Nodes:   nodes,
		Pattern: simulator.ParsePattern(*pattern),
		BaseCPU: *baseCPU,
	})

	if err := agents.Start(); err != nil {
		return fmt.Errorf("failed to start agent server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down agent simulator")
	return agents.Stop()
}
