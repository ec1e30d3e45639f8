package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/loom/internal/api"
	"github.com/samcharles93/loom/internal/engine"
	"github.com/samcharles93/loom/internal/inference"
	"github.com/samcharles93/loom/internal/logger"
	"github.com/samcharles93/loom/internal/logits"
	"github.com/samcharles93/loom/internal/memstore"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		memoryPath  string
		modelName   string
	)

	flags := append(commonEngineFlags(),
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read header timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.StringFlag{
			Name:        "memory",
			Usage:       "memory store path (empty = in-memory)",
			Destination: &memoryPath,
		},
		&cli.StringFlag{
			Name:        "model-name",
			Usage:       "model id reported by the API",
			Value:       "loom",
			Destination: &modelName,
		},
	)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the REST API (completions and memory)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			fileCfg := LoadConfig()
			applyServeConfig(c, fileCfg, &addr, &memoryPath)

			log := buildLogger()
			ctx = logger.WithContext(ctx, log)

			if threads < inference.RecommendedThreads {
				log.Warn("thread count below recommended minimum",
					"threads", threads, "recommended", inference.RecommendedThreads)
			}

			store, err := memstore.Open(memoryPath)
			if err != nil {
				return err
			}

			eng := engine.NewToy(engine.ToyConfig{
				ContextSize: int(contextSize),
				Seed:        engineSeed,
			})
			base := inference.Config{
				Threads:     int(threads),
				GPULayers:   int(gpuLayers),
				MainGPU:     int(mainGPU),
				ContextSize: int(contextSize),
				BatchSize:   int(batchSize),
				Sampling:    logits.SamplerConfig{},
			}

			server := api.NewServer(api.NewSerialProvider(eng), store, base, modelName, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr)
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
