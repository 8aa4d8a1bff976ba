package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/clearbrook/orderpipe/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli.SetVersion(version)
	if err := cli.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
