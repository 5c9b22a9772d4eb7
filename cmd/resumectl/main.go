// Command resumectl runs the extraction and analysis pipeline against local
// files without the HTTP server.
package main

import (
	"os"

	"resume-analyzer/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		telemetry.Sync()
		os.Exit(1)
	}
	telemetry.Sync()
}
