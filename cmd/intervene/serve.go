package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/intervene/internal/api"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		configFile  string
		mirrorDir   string
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the anchor registry and an optional hub mirror over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "config.json used to size anchors",
				Destination: &configFile,
			},
			&cli.StringFlag{
				Name:        "mirror-dir",
				Usage:       "serve <dir>/<org>/<repo>/<file> under /<org>/<repo>/resolve/<rev>/<file>",
				Destination: &mirrorDir,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if fileConfig.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = fileConfig.ServerAddress
			}
			if fileConfig.MirrorDir != "" && !cmd.IsSet("mirror-dir") {
				mirrorDir = fileConfig.MirrorDir
			}

			opts := api.Options{MirrorDir: mirrorDir, Logger: log.With("component", "api")}
			if configFile != "" {
				cfg, err := hfconfig.Load(configFile)
				if err != nil {
					return err
				}
				opts.Config = cfg
			}
			e := api.NewServer(opts).Echo()

			log.Info("starting server", "address", addr, "mirror", mirrorDir != "")
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
