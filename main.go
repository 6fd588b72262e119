package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	ctx := shutdownContext(context.Background(), slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exitOnError(err)
	}
}
