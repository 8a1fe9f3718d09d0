package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samcharles93/intervene/internal/logger"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	var flags []cli.Flag
	flags = append(flags, loggingFlags()...)
	flags = append(flags, hubFlags()...)

	return &cli.Command{
		Name:  "intervene",
		Usage: "Intervention anchor registry and model hub loader",
		Flags: flags,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath())
			if err != nil {
				return ctx, err
			}
			fileConfig = cfg
			applyGlobalConfig(cmd, cfg)

			level := logLevel
			if debug {
				level = "debug"
			}
			log, err := logger.New(logger.Options{Format: logFormat, Level: level, Writer: cmd.Root().ErrWriter})
			if err != nil {
				return ctx, cli.Exit(err.Error(), 2)
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			anchorsCmd(),
			dimsCmd(),
			resolveCmd(),
			fetchCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

// fileConfig holds the config file read in Before, for commands that apply
// their own fields.
var fileConfig Config
