// Command safetyctl administers the safety index data store from the shell.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := RootCommand(log).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
