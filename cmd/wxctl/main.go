package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeBiancalana/wxctl/internal/cli"
	"github.com/MikeBiancalana/wxctl/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx)
	logger.Close()
	if err != nil {
		stop()
		os.Exit(1)
	}
}
