package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timada-org/hookrelay/internal/api"
	"github.com/timada-org/hookrelay/internal/core"
)

var (
	cfgFile string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the hookrelay server",

		Run: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Msg("unable to load .env")
			}

			config, err := core.NewConfig(cfgFile)
			if err != nil {
				log.Fatal().Err(err).Msg("unable to load config")
			}

			setupLogger(config.Log)

			app, err := api.New(config)
			if err != nil {
				log.Fatal().Err(err).Msg("unable to create app")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = app.Listen(ctx)

			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			app.Close(closeCtx)

			if err != nil {
				log.Fatal().Err(err).Msg("server stopped")
			}

			log.Info().Msg("Bye bye")
		},
	}
)

func init() {
	serveCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/hookrelay.yml", "config file")
}

func setupLogger(cfg core.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Msgf("unknown log level %q, using info", cfg.Level)
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Logger()
	}
}
