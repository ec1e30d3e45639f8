package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/loom/internal/engine"
	"github.com/samcharles93/loom/internal/inference"
	"github.com/samcharles93/loom/internal/logger"
	"github.com/samcharles93/loom/internal/logits"
	"github.com/samcharles93/loom/internal/template"
)

func runCmd() *cli.Command {
	var (
		prompt     string
		promptFile string
		format     string
		llmName    string

		steps        int64
		temp         float64
		topK         int64
		topP         float64
		tfsZ         float64
		repeatPen    float64
		freqPen      float64
		presencePen  float64
		penaltyLastN int64
		mirostat     int64
		mirostatTau  float64
		mirostatEta  float64
		seed         int64

		stops      []string
		streamMode string
	)

	flags := append(commonEngineFlags(),
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt text",
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "prompt-file",
			Aliases:     []string{"f"},
			Usage:       "load prompt from a file ({llmName} is substituted)",
			Destination: &promptFile,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "prompt format (" + strings.Join(template.Names(), ", ") + ")",
			Destination: &format,
		},
		&cli.StringFlag{
			Name:        "llm-name",
			Usage:       "display name substituted into prompt templates",
			Value:       "Loom",
			Destination: &llmName,
		},
		&cli.Int64Flag{
			Name:        "steps",
			Aliases:     []string{"n", "max-new-tokens"},
			Usage:       "maximum number of tokens to generate",
			Value:       256,
			Destination: &steps,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       0.8,
			Destination: &temp,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "top-k sampling parameter (0 = disabled)",
			Value:       40,
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "top-p sampling parameter",
			Value:       0.95,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "tfs-z",
			Usage:       "tail-free sampling parameter (1.0 = disabled)",
			Value:       1.0,
			Destination: &tfsZ,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "repetition penalty (1.0 = disabled)",
			Value:       1.1,
			Destination: &repeatPen,
		},
		&cli.Float64Flag{
			Name:        "frequency-penalty",
			Usage:       "frequency penalty",
			Destination: &freqPen,
		},
		&cli.Float64Flag{
			Name:        "presence-penalty",
			Usage:       "presence penalty",
			Destination: &presencePen,
		},
		&cli.Int64Flag{
			Name:        "penalty-last-n",
			Usage:       "penalty window size (-1 = whole history)",
			Value:       64,
			Destination: &penaltyLastN,
		},
		&cli.Int64Flag{
			Name:        "mirostat",
			Usage:       "mirostat mode (0, 1, 2)",
			Destination: &mirostat,
		},
		&cli.Float64Flag{
			Name:        "mirostat-tau",
			Usage:       "mirostat target surprise",
			Value:       5.0,
			Destination: &mirostatTau,
		},
		&cli.Float64Flag{
			Name:        "mirostat-eta",
			Usage:       "mirostat learning rate",
			Value:       0.1,
			Destination: &mirostatEta,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (-1 = random)",
			Value:       -1,
			Destination: &seed,
		},
		&cli.StringSliceFlag{
			Name:        "stop",
			Usage:       "anti-prompt that terminates generation (repeatable)",
			Destination: &stops,
		},
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "output mode (instant, typewriter, quiet)",
			Value:       "instant",
			Destination: &streamMode,
		},
	)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate text from a prompt, or chat interactively",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			fileCfg := LoadConfig()
			applyRunConfig(c, fileCfg,
				&temp, &topK, &topP, &tfsZ,
				&repeatPen, &penaltyLastN,
				&mirostat, &mirostatTau, &mirostatEta,
				&steps, &seed, &format, &llmName, &streamMode)

			log := buildLogger()
			ctx = logger.WithContext(ctx, log)

			if threads < inference.RecommendedThreads {
				log.Warn("thread count below recommended minimum",
					"threads", threads, "recommended", inference.RecommendedThreads)
			}

			var prof template.Profile
			haveProf := false
			if format != "" {
				kind, err := template.ParseKind(format)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				prof, err = template.Lookup(kind, llmName)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				haveProf = true
			}

			if promptFile != "" {
				raw, err := os.ReadFile(promptFile)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read prompt file: %v", err), 1)
				}
				prompt = template.ExpandPrompt(string(raw), llmName) + prompt
			}

			antiPrompts := append([]string(nil), stops...)
			if haveProf && prof.InputPrefix != "" {
				antiPrompts = append(antiPrompts, prof.InputPrefix)
			}

			eng := engine.NewToy(engine.ToyConfig{
				ContextSize: int(contextSize),
				Seed:        engineSeed,
			})

			base := inference.Config{
				Threads:      int(threads),
				GPULayers:    int(gpuLayers),
				MainGPU:      int(mainGPU),
				ContextSize:  int(contextSize),
				Seed:         seed,
				BatchSize:    int(batchSize),
				MaxNewTokens: int(steps),
				AntiPrompts:  antiPrompts,
				Sampling: logits.SamplerConfig{
					Temperature:      float32(temp),
					TopK:             int(topK),
					TopP:             float32(topP),
					TailFreeZ:        float32(tfsZ),
					TypicalP:         1.0,
					RepeatPenalty:    float32(repeatPen),
					FrequencyPenalty: float32(freqPen),
					PresencePenalty:  float32(presencePen),
					PenaltyLastN:     int(penaltyLastN),
					Mirostat:         int(mirostat),
					MirostatTau:      float32(mirostatTau),
					MirostatEta:      float32(mirostatEta),
				},
			}

			sw := NewStreamWriter(StreamMode(streamMode))

			generate := func(full string) (*inference.Result, error) {
				cfg := base
				cfg.Prompt = full
				gen, err := inference.NewGenerator(eng, cfg)
				if err != nil {
					return nil, err
				}
				res, err := gen.Run(ctx, sw.Write)
				if err != nil {
					return nil, err
				}
				sw.Flush()
				return res, nil
			}

			if prompt != "" {
				res, err := generate(prompt)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
				}
				fmt.Println()
				log.Info("generation finished",
					"tokens", res.Stats.TokensGenerated,
					"duration", res.Stats.Duration.Round(time.Millisecond),
					"tps", fmt.Sprintf("%.2f", res.Stats.TPS),
					"finish", res.FinishReason,
					"seed", res.Seed)
				return nil
			}

			// Interactive chat. Each turn re-renders the whole history so
			// the engine sees one consistent prompt.
			if stdinIsTTY() {
				fmt.Fprintln(os.Stderr, "Interactive mode. Type /exit to quit.")
			}
			history := prompt
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "/exit" {
					break
				}
				if input == "" {
					continue
				}

				turn := input
				if haveProf {
					turn = prof.RenderTurn(input)
				}
				res, err := generate(history + turn)
				if err != nil {
					log.Error("generation failed", "error", err)
					break
				}
				fmt.Println()
				history += turn + res.Text
			}
			return scanner.Err()
		},
	}
}
