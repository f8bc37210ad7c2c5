// cmd/tool is the operator CLI: schema migrations, user and role
// administration, token minting and key generation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
)

func main() {
	_ = config.LoadDotEnv()
	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], defaultEnv(os.Stdout)); err != nil {
		logger.Logger.Error().Err(err).Msg("tool failed")
		stop()
		os.Exit(1)
	}
}
