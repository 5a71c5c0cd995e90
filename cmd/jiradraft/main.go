package main

import (
	"os"

	"github.com/codex-k8s/jiradraft/internal/cli"
	"github.com/codex-k8s/jiradraft/internal/logging"
)

// main is the entry point for the jiradraft CLI binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		if !cli.Reported(err) {
			logger.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}
