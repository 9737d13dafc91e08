package main

import (
	"os"

	"github.com/wonny/fluxrx/cmd/flux/commands"
)

// main is the entry point for the flux CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/flux [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
