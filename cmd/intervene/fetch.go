package main

import (
	"context"
	"fmt"

	"github.com/samcharles93/intervene/internal/hub"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/models/qwen"
	"github.com/samcharles93/intervene/internal/safetensors"
	"github.com/urfave/cli/v3"
)

// newHub builds the hub client from the global flags. A non-empty localDir
// bypasses the network.
func newHub(localDir string) *hub.Hub {
	if localDir != "" {
		return hub.New(hub.DirFetcher{Root: localDir})
	}
	return hub.New(hub.NewHTTPFetcher(hubEndpoint, revision, hubToken, rps))
}

func fetchCmd() *cli.Command {
	var (
		dtypeName string
		localDir  string
	)
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Download and open a pretrained Qwen config, tokenizer and checkpoint",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "loading precision (bfloat16, float16, float32)",
				Value:       qwen.DefaultDType.TorchName(),
				Destination: &dtypeName,
			},
			&cli.StringFlag{
				Name:        "local-dir",
				Usage:       "read models from <dir>/<name> instead of the hub",
				Destination: &localDir,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if fileConfig.DType != "" && !cmd.IsSet("dtype") {
				dtypeName = fileConfig.DType
			}
			dtype, err := safetensors.ParseDType(dtypeName)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			dir, err := resolveCacheDir(cacheDir)
			if err != nil {
				return err
			}

			name := cmd.Args().First()
			logger.FromContext(ctx).Debug("fetching", "model", name, "cache_dir", dir, "endpoint", hubEndpoint)
			cfg, tok, m, err := qwen.Create(ctx, newHub(localDir), name, dir, dtype)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			tw := newTable(stdout(cmd))
			row := func(k string, v any) { _, _ = fmt.Fprintf(tw, "%s\t%v\n", k, v) }
			row("model", m.Name)
			row("model_type", cfg.ModelType)
			row("architecture", cfg.Architecture())
			row("dtype", m.DType.TorchName())
			row("layers", cfg.NumHiddenLayers)
			row("hidden_size", cfg.HiddenSize)
			row("tensors", len(m.Tensors()))
			row("vocab", tok.VocabSize())
			row("cache_dir", dir)
			return tw.Flush()
		},
	}
}
