package main

import "github.com/urfave/cli/v3"

var (
	contextSize int64
	batchSize   int64
	threads     int64
	gpuLayers   int64
	mainGPU     int64
	engineSeed  int64
	logLevel    string
	logFormat   string
	debug       bool
)

func commonEngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "ctx",
			Aliases:     []string{"context-size", "c"},
			Usage:       "context window size in tokens",
			Value:       2048,
			Destination: &contextSize,
		},
		&cli.Int64Flag{
			Name:        "batch",
			Aliases:     []string{"batch-size", "b"},
			Usage:       "prompt evaluation batch size",
			Value:       64,
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "threads",
			Usage:       "engine thread count",
			Value:       6,
			Destination: &threads,
		},
		&cli.Int64Flag{
			Name:        "gpu-layers",
			Aliases:     []string{"ngl"},
			Usage:       "layers to offload to the GPU",
			Destination: &gpuLayers,
		},
		&cli.Int64Flag{
			Name:        "main-gpu",
			Usage:       "index of the GPU used for scratch buffers",
			Destination: &mainGPU,
		},
		&cli.Int64Flag{
			Name:        "engine-seed",
			Usage:       "seed for the built-in engine weights",
			Value:       7,
			Destination: &engineSeed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
