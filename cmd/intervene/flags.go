package main

import (
	"github.com/samcharles93/intervene/internal/hub"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/urfave/cli/v3"
)

var (
	cacheDir    string
	hubEndpoint string
	revision    string
	hubToken    string
	rps         float64
	logLevel    string
	logFormat   string
	debug       bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, console, json, text)",
			Value:       logger.FormatPretty,
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func hubFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "download cache (default: $" + hub.EnvCacheDir + ", $HF_HOME/intervene or the user cache dir)",
			Destination: &cacheDir,
		},
		&cli.StringFlag{
			Name:        "hub-endpoint",
			Usage:       "model hub base URL",
			Value:       hub.DefaultEndpoint,
			Sources:     cli.EnvVars("HF_ENDPOINT"),
			Destination: &hubEndpoint,
		},
		&cli.StringFlag{
			Name:        "revision",
			Usage:       "repo revision to download",
			Value:       hub.DefaultRevision,
			Destination: &revision,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "hub access token",
			Sources:     cli.EnvVars("HF_TOKEN"),
			Destination: &hubToken,
		},
		&cli.Float64Flag{
			Name:        "rps",
			Usage:       "max hub requests per second (0 = unlimited)",
			Value:       4,
			Destination: &rps,
		},
	}
}
