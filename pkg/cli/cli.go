package cli

import (
	"context"

	"github.com/upstratum/gitshelf/pkg/cli/config"
	"github.com/upstratum/gitshelf/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

func Run(ctx context.Context, args []string) error {
	var loggerCfg config.Logger
	var closer func()
	app := &cli.Command{
		Name:    "gitshelf",
		Usage:   "Serve the files of a GitHub repository as read-only MCP resources",
		Version: Version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			logging.Default().Debug("base options", "logger", loggerCfg)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdList(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
