package main

import (
	"os"

	"github.com/wonny/delaycast/cmd/delaycast/commands"
)

// main is the entry point for the delaycast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/delaycast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
