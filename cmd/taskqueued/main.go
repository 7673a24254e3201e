// ============================================================================
// taskqueued - Main Entry Point
// ============================================================================
//
// File: cmd/taskqueued/main.go
// Purpose: Application entry point and CLI initialization, adapted from
//          the teacher's cmd/queue/main.go.
//
// Version Injection:
//   go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/dingodb/dingo-taskqueue/internal/cli"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
