package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kiss-go/internal/infra/shutdown"
	"github.com/yndnr/kiss-go/internal/server/config"
	"github.com/yndnr/kiss-go/internal/server/lifecycle"
	"github.com/yndnr/kiss-go/internal/telemetry/logger"
	"github.com/yndnr/kiss-go/internal/telemetry/metric"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "build the cache and serve it until SIGINT or SIGTERM",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	opts := loaderOptions(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()

	reload := func() (*config.ServerConfig, error) { return readConfig(opts) }
	m := lifecycle.New(cfg,
		lifecycle.WithLogger(log.Slog()),
		lifecycle.WithMetrics(metric.Global()),
		lifecycle.WithConfigReload(c.String("config"), reload, logger.SetLevel, logger.GetLevel),
	)
	return m.Run(ctx)
}
