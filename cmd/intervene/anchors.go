package main

import (
	"context"
	"fmt"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/models"
	"github.com/samcharles93/intervene/internal/models/qwen"
	"github.com/urfave/cli/v3"
)

func modelFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "model-type",
		Usage:       "model family (" + fmt.Sprint(models.Families()) + ")",
		Value:       qwen.ModelType,
		Destination: dest,
	}
}

func variantFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "variant",
		Usage:       "table variant (base, lm, classifier)",
		Value:       string(anchor.VariantBase),
		Destination: dest,
	}
}

func lookupPair(modelType, variant string) (anchor.Variant, anchor.Pair, error) {
	r, err := models.Lookup(modelType)
	if err != nil {
		return "", anchor.Pair{}, cli.Exit(err.Error(), 2)
	}
	v, err := anchor.ParseVariant(variant)
	if err != nil {
		return "", anchor.Pair{}, cli.Exit(err.Error(), 2)
	}
	p, err := r.Pair(v)
	if err != nil {
		return "", anchor.Pair{}, err
	}
	return v, p, nil
}

func anchorsCmd() *cli.Command {
	var (
		modelType string
		variant   string
		format    string
	)
	return &cli.Command{
		Name:  "anchors",
		Usage: "List the anchor table of a model variant",
		Flags: []cli.Flag{modelFlag(&modelType), variantFlag(&variant), formatFlag(&format)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, p, err := lookupPair(modelType, variant)
			if err != nil {
				return err
			}
			w := stdout(cmd)
			entries := p.Anchors.Entries()
			if done, err := writeStructured(w, format, entries); done {
				return err
			}

			tw := newTable(w)
			_, _ = fmt.Fprintln(tw, "ANCHOR\tTEMPLATE\tHOOK\tRESHAPE")
			for _, e := range entries {
				reshape := "-"
				if e.Reshape != nil {
					reshape = e.Reshape.Func + "(" + e.Reshape.Dim + ")"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Template, e.Hook, reshape)
			}
			return tw.Flush()
		},
	}
}
