package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirerelay/internal/app"
	"github.com/vovakirdan/wirerelay/internal/config"
	applog "github.com/vovakirdan/wirerelay/internal/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wirerelay PORT",
		Short: "Relay messages from registered senders to registered readers",
		Long: `wirerelay listens on PORT (1024-65535) for relay clients.

Clients join with an identity: 1-999 registers a reader, 1000-1998 a sender.
Senders address one reader by identity or every reader with destination 0.

Settings beyond the port come from config.yaml in the working directory, the
file named by WIRERELAY_CONFIG, or WIRERELAY_* environment variables.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one argument: PORT")
			}
			_, err := config.ParsePort(args[0])
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Past argument validation, failures are runtime errors, not usage errors.
			cmd.SilenceUsage = true

			port, err := config.ParsePort(args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), port)
		},
	}
}

func run(parent context.Context, port int) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, path, err := config.Load(applog.New("info"), "")
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{Port: port})

	logger := applog.New(cfg.LogLevel)
	logger.Info().Str("config", path).Int("port", cfg.Port).Msg("starting wirerelay")

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
