// Command vigil grades source files against a security guidance knowledge base.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/vigil/internal/adapters/driving/cli"
	"github.com/custodia-labs/vigil/internal/logger"
)

func main() {
	// API keys may live in a .env file next to the project.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(".env not loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		// cobra has already printed the error.
		stop()
		os.Exit(1)
	}
}
