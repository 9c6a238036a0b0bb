package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gnacore/internal/logger"
	"github.com/samcharles93/gnacore/internal/request"
)

func scoreCmd() *cli.Command {
	var (
		batch   bool
		workers int64
		matrix  bool
	)

	return &cli.Command{
		Name:      "score",
		Usage:     "Run layer descriptors and print the results",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "batch",
				Usage:       "each file holds a JSON array of descriptors",
				Destination: &batch,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Usage:       "concurrent requests (0 = GOMAXPROCS)",
				Destination: &workers,
			},
			&cli.BoolFlag{
				Name:        "matrix",
				Usage:       "print outputs as a rows by vectors table instead of JSON",
				Destination: &matrix,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.Args().Len() == 0 {
				return cli.Exit("error: at least one descriptor file is required", 1)
			}

			var descs []*request.Descriptor
			for _, path := range cmd.Args().Slice() {
				loaded, err := loadDescriptors(path, batch)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				descs = append(descs, loaded...)
			}
			applyBufferCapacity(descs, int(bufferCapacity))

			table := activeTable()
			log.Debug("scoring", "requests", len(descs), "tier", table.Tier())
			results, err := request.RunBatch(ctx, table, descs, int(workers))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			for _, res := range results {
				if res.Saturation > 0 {
					log.Warn("output saturated", "id", res.ID, "count", res.Saturation)
				}
			}

			if matrix {
				for _, res := range results {
					if err := writeMatrix(os.Stdout, res); err != nil {
						return err
					}
				}
				return nil
			}
			return writeJSON(os.Stdout, results)
		},
	}
}

func loadDescriptors(path string, batch bool) ([]*request.Descriptor, error) {
	if path == "-" {
		if batch {
			return request.DecodeBatch(os.Stdin)
		}
		d, err := request.Decode(os.Stdin)
		if err != nil {
			return nil, err
		}
		return []*request.Descriptor{d}, nil
	}
	if batch {
		return request.LoadBatchFile(path)
	}
	d, err := request.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*request.Descriptor{d}, nil
}

// applyBufferCapacity fills the window of descriptors that leave it unset.
func applyBufferCapacity(descs []*request.Descriptor, capacity int) {
	if capacity <= 0 {
		return
	}
	for _, d := range descs {
		if d.BufferCapacity == 0 {
			d.BufferCapacity = capacity
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// writeMatrix prints one result as a table with one line per output row.
// Recurrent sequences print one line per step.
func writeMatrix(w io.Writer, res *request.Result) error {
	cols := max(res.Vectors, 1)
	if res.Steps > 0 {
		cols = res.Rows
	}
	fmt.Fprintf(w, "# %s %s saturation=%d\n", res.ID, res.Kernel, res.Saturation)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	for i := 0; i < len(res.Output); i += cols {
		row := res.Output[i:min(i+cols, len(res.Output))]
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}
