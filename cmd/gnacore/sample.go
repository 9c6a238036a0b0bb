package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gnacore/internal/logger"
	"github.com/samcharles93/gnacore/internal/request"
)

func sampleCmd() *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Score the built-in 8x16 affine layer and check it against the reference",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			res, err := request.Run(ctx, activeTable(), request.Sample())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := writeMatrix(os.Stdout, res); err != nil {
				return err
			}
			if !slices.Equal(res.Output, request.SampleOutput) {
				return cli.Exit("error: sample output differs from the reference", 1)
			}
			log.Info("sample matches reference", "kernel", res.Kernel, "elapsed", res.Elapsed)
			return nil
		},
	}
}
