// Package main is the entry point for the eeudesk agent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IsaacDSC/eeudesk/cmd/eeudesk/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.New().Execute(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "eeudesk: %v\n", err)
		stop()
		os.Exit(1)
	}
}
