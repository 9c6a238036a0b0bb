// Package api serves the scoring engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/kernel"
	"github.com/samcharles93/gnacore/internal/logger"
	"github.com/samcharles93/gnacore/internal/request"
)

// Options configures a Server. Zero values pick defaults.
type Options struct {
	Table   *kernel.Table
	Caps    backend.Capabilities
	Workers int

	// RateLimit is the sustained number of scoring requests per second.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int

	// StoreLimit bounds how many results stay retrievable by id.
	StoreLimit int

	Logger logger.Logger
}

type Server struct {
	table   *kernel.Table
	caps    backend.Capabilities
	workers int
	store   *ResultStore
	limiter *rate.Limiter
	log     logger.Logger
	clock   func() time.Time
}

func NewServer(opts Options) *Server {
	if opts.Table == nil {
		opts.Table = kernel.TableFor(backend.Baseline)
	}
	if opts.StoreLimit <= 0 {
		opts.StoreLimit = 1024
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	s := &Server{
		table:   opts.Table,
		caps:    opts.Caps,
		workers: opts.Workers,
		store:   NewResultStore(opts.StoreLimit),
		log:     opts.Logger,
		clock:   time.Now,
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	limit := s.rateLimit()
	e.POST("/v1/score", s.handleScore, limit)
	e.POST("/v1/score/batch", s.handleScoreBatch, limit)
	e.GET("/v1/score/:id", s.handleGetScore)
	e.DELETE("/v1/score/:id", s.handleDeleteScore)
	e.GET("/v1/kernels", s.handleKernels)
	e.GET("/v1/capabilities", s.handleCapabilities)
}

// rateLimit rejects scoring requests beyond the token bucket with 429.
func (s *Server) rateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if s.limiter != nil && !s.limiter.Allow() {
				return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many scoring requests", "rate_limited")
			}
			return next(c)
		}
	}
}

func (s *Server) requestContext(c *echo.Context) context.Context {
	return logger.WithContext(c.Request().Context(), s.log.With("path", c.Request().URL.Path))
}

func (s *Server) handleScore(c *echo.Context) error {
	d, err := request.Decode(c.Request().Body)
	if err != nil {
		return writeRequestError(c, err)
	}
	res, err := request.Run(s.requestContext(c), s.table, d)
	if err != nil {
		return writeRequestError(c, err)
	}
	s.store.Put(res)
	s.log.Info("scored", "id", res.ID, "kernel", res.Kernel, "saturation", res.Saturation, "elapsed", res.Elapsed)
	return c.JSON(http.StatusOK, res)
}

// BatchResponse lists batch results in request order.
type BatchResponse struct {
	Object string            `json:"object"`
	Tier   string            `json:"tier"`
	Data   []*request.Result `json:"data"`
}

func (s *Server) handleScoreBatch(c *echo.Context) error {
	descs, err := request.DecodeBatch(c.Request().Body)
	if err != nil {
		return writeRequestError(c, err)
	}
	if len(descs) == 0 {
		return writeBadRequest(c, "batch is empty")
	}
	start := s.clock()
	results, err := request.RunBatch(s.requestContext(c), s.table, descs, s.workers)
	if err != nil {
		return writeRequestError(c, err)
	}
	for _, res := range results {
		s.store.Put(res)
	}
	s.log.Info("scored batch", "requests", len(results), "elapsed", s.clock().Sub(start))
	return c.JSON(http.StatusOK, BatchResponse{
		Object: "list",
		Tier:   s.table.Tier().String(),
		Data:   results,
	})
}

func (s *Server) handleGetScore(c *echo.Context) error {
	res, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "score not found")
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteScore(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "score not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      id,
		"object":  "score",
		"deleted": true,
	})
}

// KernelInfo describes one dispatch table entry.
type KernelInfo struct {
	Name        string `json:"name"`
	Op          string `json:"op"`
	WeightWidth int    `json:"weight_width"`
	InputWidth  int    `json:"input_width"`
	ActiveList  bool   `json:"active_list"`
}

// DescribeKernels lists the entries of table in key order.
func DescribeKernels(table *kernel.Table) []KernelInfo {
	return lo.Map(table.Keys(), func(k kernel.Key, _ int) KernelInfo {
		e, _ := table.Lookup(k)
		return KernelInfo{
			Name:        e.Name,
			Op:          k.Op.String(),
			WeightWidth: int(k.Weight),
			InputWidth:  int(k.Input),
			ActiveList:  k.ActiveList,
		}
	})
}

func (s *Server) handleKernels(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"tier":   s.table.Tier().String(),
		"data":   DescribeKernels(s.table),
	})
}

func (s *Server) handleCapabilities(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"arch":      s.caps.Arch,
		"detected":  s.caps.TierName,
		"active":    s.table.Tier().String(),
		"available": backend.Available(),
		"features":  s.caps.Features,
		"lanes":     kernel.Lanes(s.table.Tier()),
	})
}
