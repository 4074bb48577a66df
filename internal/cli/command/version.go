package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kiss-go/internal/cli/output"
	"github.com/yndnr/kiss-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print build information",
		Flags: []cli.Flag{outputFlag()},
		Action: func(c *cli.Context) error {
			format, err := output.ParseFormat(c.String("output"))
			if err != nil {
				return err
			}
			return output.WriteVersion(c.App.Writer, format, c.App.Name, buildinfo.Get())
		},
	}
}
