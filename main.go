package main

//go:generate swag init -g internal/server/docs.go -o docs

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"keepwarm/internal/app"
	"keepwarm/internal/cli/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	application := app.New()
	err := application.RunWithContext(ctx, os.Args[1:])
	stop()

	os.Exit(commands.ReportError(os.Stderr, err))
}
