package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/kernel"
	"github.com/samcharles93/gnacore/internal/logger"
	"github.com/samcharles93/gnacore/internal/request"
)

func benchCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		rows       int64
		columns    int64
		allTiers   bool
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time synthetic affine, recurrent and gmm layers",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "warmup",
				Usage:       "number of warmup runs",
				Value:       2,
				Destination: &warmupRuns,
			},
			&cli.Int64Flag{
				Name:        "runs",
				Usage:       "number of timed runs",
				Value:       20,
				Destination: &benchRuns,
			},
			&cli.Int64Flag{
				Name:        "rows",
				Usage:       "output rows of each layer",
				Value:       256,
				Destination: &rows,
			},
			&cli.Int64Flag{
				Name:        "columns",
				Usage:       "input elements of each layer",
				Value:       1024,
				Destination: &columns,
			},
			&cli.BoolFlag{
				Name:        "all-tiers",
				Usage:       "run on every tier instead of the selected one",
				Destination: &allTiers,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if rows <= 0 || columns <= 0 || benchRuns <= 0 {
				return cli.Exit("error: rows, columns and runs must be positive", 1)
			}

			tiers := []backend.Tier{activeTier}
			if allTiers {
				tiers = backend.Tiers()
			}
			layers := benchLayers(int(rows), int(columns))

			p := message.NewPrinter(language.English)
			p.Printf("=== gnacore bench ===\n")
			p.Printf("CPUs:       %d\n", runtime.NumCPU())
			p.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			p.Printf("Shape:      %d x %d\n", rows, columns)
			p.Printf("Warmup:     %d runs\n", warmupRuns)
			p.Printf("Runs:       %d\n\n", benchRuns)

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tLAYER\tKERNEL\tAVG\tMACS/S\tSATURATED")
			for _, tier := range tiers {
				table := kernel.TableFor(tier)
				for _, l := range layers {
					plan, err := request.NewPlan(ctx, table, l.desc)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %s: %v", l.name, err), 1)
					}
					for range int(warmupRuns) {
						if _, err := plan.Run(ctx); err != nil {
							return cli.Exit(fmt.Sprintf("error: warmup %s: %v", l.name, err), 1)
						}
					}

					var total time.Duration
					var sat uint32
					for i := range int(benchRuns) {
						log.Debug("bench run", "tier", tier, "layer", l.name, "run", i+1)
						res, err := plan.Run(ctx)
						if err != nil {
							return cli.Exit(fmt.Sprintf("error: %s run %d: %v", l.name, i+1, err), 1)
						}
						total += res.Elapsed
						sat = res.Saturation
					}
					avg := total / time.Duration(benchRuns)
					rate := 0.0
					if avg > 0 {
						rate = float64(l.macs) / avg.Seconds()
					}
					fmt.Fprint(tw, p.Sprintf("%s\t%s\t%s\t%s\t%.0f\t%d\n",
						tier, l.name, plan.Entry.Name, avg.Round(time.Microsecond), rate, sat))
				}
			}
			return tw.Flush()
		},
	}
}

type benchLayer struct {
	name string
	desc *request.Descriptor
	// multiply-accumulates per run
	macs int64
}

// benchLayers builds deterministic layers of the given shape. Values follow
// small modular sequences so outputs stay mostly unsaturated.
func benchLayers(rows, columns int) []benchLayer {
	const vectors = 4
	const steps = 4
	const mixtures = 2

	fill := func(n, mod, off int) []int64 {
		out := make([]int64, n)
		for i := range out {
			out[i] = int64((i*7)%mod - off)
		}
		return out
	}
	ufill := func(n, mod, base int) []int64 {
		out := make([]int64, n)
		for i := range out {
			out[i] = int64((i*13)%mod + base)
		}
		return out
	}

	affine := &request.Descriptor{
		ID: "bench-affine", Op: "affine", WeightWidth: 2, InputWidth: 2,
		Rows: rows, Columns: columns, Vectors: vectors,
		Weights: request.Operand{Values: fill(rows*columns, 61, 30)},
		Input:   request.Operand{Values: fill(columns*vectors, 101, 50)},
		Bias:    &request.BiasSpec{Kind: "simple", Width: 4, Values: request.Operand{Values: fill(rows, 1001, 500)}},
	}
	recurrent := &request.Descriptor{
		ID: "bench-recurrent", Op: "recurrent", WeightWidth: 1, InputWidth: 1,
		Rows: rows, Columns: columns, Steps: steps,
		Weights: request.Operand{Values: fill(rows*(columns+rows), 15, 7)},
		Input:   request.Operand{Values: fill(columns*steps, 31, 15)},
		Bias:    &request.BiasSpec{Kind: "compound", Values: request.Operand{Values: fill(rows, 101, 50)}, Multipliers: rowMultipliers(rows)},
	}
	gmm := &request.Descriptor{
		ID: "bench-gmm", Op: "gmm", Vectors: vectors,
		Input: request.Operand{Values: ufill(columns*vectors, 256, 0)},
		GMM: &request.GMMSpec{
			Mode: "maxmix8", Layout: "interleaved",
			States: rows, Mixtures: mixtures, Elements: columns,
			Means:  request.Operand{Values: ufill(rows*mixtures*columns, 256, 0)},
			InvCov: request.Operand{Values: ufill(rows*mixtures*columns, 8, 1)},
			GConst: request.Operand{Values: ufill(rows*mixtures, 1000, 0)},
		},
	}

	return []benchLayer{
		{name: "affine", desc: affine, macs: int64(rows * columns * vectors)},
		{name: "recurrent", desc: recurrent, macs: int64(rows * (columns + rows) * steps)},
		{name: "gmm", desc: gmm, macs: int64(rows * mixtures * columns * vectors)},
	}
}

func rowMultipliers(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i%3 + 1)
	}
	return out
}
