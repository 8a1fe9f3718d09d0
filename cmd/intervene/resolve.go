package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/hub"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/metrics"
	"github.com/samcharles93/intervene/internal/modelpath"
	"github.com/samcharles93/intervene/internal/models"
	"github.com/samcharles93/intervene/internal/models/qwen"
	"github.com/samcharles93/intervene/internal/safetensors"
	"github.com/urfave/cli/v3"
)

type resolveResult struct {
	anchor.Resolved `yaml:",inline"`
	Params          []string `json:"params,omitempty" yaml:"params,omitempty"`
}

func resolveCmd() *cli.Command {
	var (
		modelType  string
		variant    string
		layer      int64
		configFile string
		checkpoint string
		format     string
	)
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve an anchor to a module path for one layer",
		ArgsUsage: "<anchor>",
		Flags: []cli.Flag{
			modelFlag(&modelType),
			variantFlag(&variant),
			&cli.Int64Flag{
				Name:        "layer",
				Aliases:     []string{"l"},
				Usage:       "layer index",
				Destination: &layer,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a config.json used to resolve sizes",
				Destination: &configFile,
			},
			&cli.StringFlag{
				Name:        "checkpoint",
				Usage:       "local checkpoint directory; the path is checked against its weights",
				Destination: &checkpoint,
			},
			formatFlag(&format),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return cli.Exit("resolve: anchor name required", 2)
			}
			log := logger.FromContext(ctx)

			var cfg *hfconfig.Config
			var err error
			if configFile != "" {
				if cfg, err = hfconfig.Load(configFile); err != nil {
					return err
				}
			}

			var model *hub.Model
			if checkpoint != "" {
				dir := filepath.Clean(checkpoint)
				h := hub.New(hub.DirFetcher{Root: filepath.Dir(dir)})
				id := filepath.Base(dir)
				if cfg == nil {
					if cfg, err = h.ResolveConfig(ctx, id, ""); err != nil {
						return err
					}
				}
				if model, err = h.ResolveModel(ctx, id, cfg, "", safetensors.F32); err != nil {
					return err
				}
				defer func() { _ = model.Close() }()
			}

			r, err := models.Lookup(modelType)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			v, err := anchor.ParseVariant(variant)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			var src anchor.AttrSource
			if cfg != nil {
				src = cfg
				if !cmd.IsSet("variant") {
					if detected, dv, err := models.Detect(cfg); err == nil {
						r, v = detected, dv
					}
				}
			}

			res, err := r.Describe(v, name, int(layer), src)
			table := r.Model() + "/" + string(v)
			if err != nil {
				metrics.AnchorLookups.WithLabelValues(table, metrics.OutcomeError).Inc()
				return err
			}
			metrics.AnchorLookups.WithLabelValues(table, metrics.OutcomeOK).Inc()

			out := resolveResult{Resolved: res}
			if model != nil {
				if r == qwen.Registry {
					qwen.AttachActivations(model, v, cfg.NumHiddenLayers)
				}
				p, err := modelpath.Parse(res.Path)
				if err != nil {
					return err
				}
				mod, err := model.Root.Lookup(p)
				if err != nil {
					return fmt.Errorf("checkpoint %s: %w", checkpoint, err)
				}
				out.Params = mod.ParamNames()
				log.Debug("anchor found in checkpoint", "path", res.Path, "params", len(out.Params))
			}

			w := stdout(cmd)
			if done, err := writeStructured(w, format, out); done {
				return err
			}
			tw := newTable(w)
			row := func(k, v string) { _, _ = fmt.Fprintf(tw, "%s\t%s\n", k, v) }
			row("anchor", res.Anchor)
			row("model", res.Model+" ("+string(res.Variant)+")")
			row("path", res.Path)
			row("hook", res.Hook.String())
			if res.Reshape != nil {
				row("reshape", res.Reshape.Func+"("+res.Reshape.Dim+")")
			}
			if res.Size > 0 {
				row("size", fmt.Sprint(res.Size))
			}
			if res.Heads > 0 {
				row("heads", fmt.Sprint(res.Heads))
			}
			if model != nil {
				params := strings.Join(out.Params, ", ")
				if params == "" {
					params = "(none)"
				}
				row("params", params)
			}
			return tw.Flush()
		},
	}
}
