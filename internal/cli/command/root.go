package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kiss-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "kiss-server",
		Usage:   "serve a directory from memory over HTTP/1.1",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			ScanCommand(),
			VersionCommand(),
		},
		DefaultCommand: "serve",
	}
}

// globalFlags returns the flags available to every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the YAML configuration file",
			EnvVars: []string{"KISS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "content root directory (content.root)",
		},
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "listen address (server.addr)",
		},
		&cli.StringFlag{
			Name:  "admin-addr",
			Usage: "admin listen address, empty to disable (admin.addr)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error (log.level)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "json or text (log.format)",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "fail startup on any unreadable file (content.strict)",
		},
	}
}

// outputFlag selects the report format of scan and version.
func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format: table, json, yaml",
		Value:   "table",
	}
}
