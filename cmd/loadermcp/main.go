// Package main provides the entry point for the loadermcp CLI.
package main

import (
	"os"

	"github.com/martin-papy/qdrant-loader-mcp-server/cmd/loadermcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
