package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/urfave/cli/v3"
)

type dimRow struct {
	Name      string   `json:"name" yaml:"name"`
	Proposals []string `json:"proposals" yaml:"proposals"`
	Value     int      `json:"value,omitempty" yaml:"value,omitempty"`
}

func dimsCmd() *cli.Command {
	var (
		modelType  string
		configFile string
		format     string
	)
	return &cli.Command{
		Name:  "dims",
		Usage: "List the dimension table, resolved against a config.json when given",
		Flags: []cli.Flag{
			modelFlag(&modelType),
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a config.json used to resolve sizes",
				Destination: &configFile,
			},
			formatFlag(&format),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, p, err := lookupPair(modelType, string(anchor.VariantBase))
			if err != nil {
				return err
			}
			var cfg *hfconfig.Config
			if configFile != "" {
				if cfg, err = hfconfig.Load(configFile); err != nil {
					return err
				}
			}

			rows := make([]dimRow, 0, p.Dims.Len())
			for _, e := range p.Dims.Entries() {
				row := dimRow{Name: e.Name, Proposals: e.Proposals}
				if cfg != nil {
					if n, err := p.Dims.Resolve(e.Name, cfg); err == nil {
						row.Value = n
					}
				}
				rows = append(rows, row)
			}

			w := stdout(cmd)
			if done, err := writeStructured(w, format, rows); done {
				return err
			}
			tw := newTable(w)
			_, _ = fmt.Fprintln(tw, "KEY\tPROPOSALS\tVALUE")
			for _, r := range rows {
				value := "-"
				if r.Value > 0 {
					value = fmt.Sprint(r.Value)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, strings.Join(r.Proposals, " | "), value)
			}
			return tw.Flush()
		},
	}
}
