package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gnacore/internal/api"
	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/kernel"
)

func kernelsCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "kernels",
		Usage: "List the dispatch table of the selected tier",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			table := activeTable()
			infos := api.DescribeKernels(table)
			if asJSON {
				return writeJSON(os.Stdout, infos)
			}

			fmt.Printf("tier %s, %d lanes\n", table.Tier(), kernel.Lanes(table.Tier()))
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tOP\tWEIGHT\tINPUT\tACTIVE LIST")
			for _, k := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%dB\t%dB\t%t\n", k.Name, k.Op, k.WeightWidth, k.InputWidth, k.ActiveList)
			}
			return tw.Flush()
		},
	}
}

func capsCmd() *cli.Command {
	return &cli.Command{
		Name:  "caps",
		Usage: "Print detected CPU capabilities as JSON",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			caps := backend.Detect()
			return writeJSON(os.Stdout, map[string]any{
				"arch":      caps.Arch,
				"detected":  caps.TierName,
				"selected":  activeTier.String(),
				"available": backend.Available(),
				"features":  caps.Features,
			})
		},
	}
}
