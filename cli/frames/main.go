package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	framescmder "github.com/papercomputeco/frames/cmd/frames"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := framescmder.NewFramesCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
