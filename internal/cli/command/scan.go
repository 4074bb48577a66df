package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kiss-go/internal/cli/output"
	"github.com/yndnr/kiss-go/internal/server/lifecycle"
	"github.com/yndnr/kiss-go/internal/storage"
	"github.com/yndnr/kiss-go/internal/telemetry/logger"
)

// ScanCommand returns the scan command.
func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "build the cache once, print a report and exit",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.BoolFlag{
				Name:    "wide",
				Aliases: []string{"w"},
				Usage:   "show the error behind each skipped file",
			},
		},
		Action: scan,
	}
}

func scan(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Skipped files are listed in the report; only warnings go to the log.
	log, err := logger.New(logger.Config{Level: "warn", Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return err
	}

	_, stats, err := storage.NewBuilder(lifecycle.BuilderConfig(cfg, "", log.Slog())).Build(c.Context)
	if err != nil {
		return err
	}
	return output.WriteScan(c.App.Writer, format, stats, c.Bool("wide"))
}
