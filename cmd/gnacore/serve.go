package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gnacore/internal/api"
	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		rateLimit   float64
		rateBurst   int64
		workers     int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the scoring API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "scoring requests per second (0 = unlimited)",
				Destination: &rateLimit,
			},
			&cli.Int64Flag{
				Name:        "rate-burst",
				Usage:       "burst size of the rate limiter",
				Value:       16,
				Destination: &rateBurst,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Usage:       "concurrent requests per batch (0 = GOMAXPROCS)",
				Destination: &workers,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr, &rateLimit, &rateBurst, &workers)

			server := api.NewServer(api.Options{
				Table:     activeTable(),
				Caps:      backend.Detect(),
				Workers:   int(workers),
				RateLimit: rateLimit,
				RateBurst: int(rateBurst),
				Logger:    log,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "tier", activeTier)
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
