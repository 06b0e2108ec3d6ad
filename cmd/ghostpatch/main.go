// File: cmd/ghostpatch/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/ghostpatch/cmd"
	"github.com/xkilldash9x/ghostpatch/internal/observability"
)

// osExit allows tests to observe the exit code.
var osExit = os.Exit

func main() {
	// Cancel the command context on SIGINT/SIGTERM so browsers and servers shut down.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	osExit(code)
}

// run executes the CLI and maps the outcome to an exit code. An interrupted
// command exits cleanly.
func run(ctx context.Context) int {
	defer observability.Sync()
	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		return 1
	}
	return 0
}
