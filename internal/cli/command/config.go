package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/infra/confloader"
	"github.com/yndnr/kiss-go/internal/server/config"
)

// flagKeys maps global flags onto configuration keys.
var flagKeys = []struct {
	flag   string
	key    string
	isBool bool
}{
	{flag: "root", key: "content.root"},
	{flag: "addr", key: "server.addr"},
	{flag: "admin-addr", key: "admin.addr"},
	{flag: "log-level", key: "log.level"},
	{flag: "log-format", key: "log.format"},
	{flag: "strict", key: "content.strict", isBool: true},
}

// overrides collects the global flags given on the command line.
func overrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for _, f := range flagKeys {
		if !c.IsSet(f.flag) {
			continue
		}
		if f.isBool {
			out[f.key] = c.Bool(f.flag)
		} else {
			out[f.key] = c.String(f.flag)
		}
	}
	return out
}

// loaderOptions returns the options shared by the initial load and
// every reload.
func loaderOptions(c *cli.Context) []confloader.Option {
	opts := []confloader.Option{confloader.WithOverrides(overrides(c))}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	return opts
}

// readConfig loads defaults, the config file, KISS_* variables and flags,
// in increasing priority.
func readConfig(opts []confloader.Option) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}
	return cfg, nil
}

// loadConfig reads and verifies the configuration.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg, err := readConfig(loaderOptions(c))
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
