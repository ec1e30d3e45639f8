package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the loom configuration file (~/.config/loom/config.yaml).
// Sampling fields are pointers so "not set" and zero stay distinguishable.
type Config struct {
	Temperature      *float64 `yaml:"temperature"`
	TopK             *int64   `yaml:"top_k"`
	TopP             *float64 `yaml:"top_p"`
	TailFreeZ        *float64 `yaml:"tfs_z"`
	RepeatPenalty    *float64 `yaml:"repeat_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	PenaltyLastN     *int64   `yaml:"penalty_last_n"`
	Mirostat         *int64   `yaml:"mirostat"`
	MirostatTau      *float64 `yaml:"mirostat_tau"`
	MirostatEta      *float64 `yaml:"mirostat_eta"`
	Steps            *int64   `yaml:"steps"`
	Seed             *int64   `yaml:"seed"`

	ContextSize *int64 `yaml:"context_size"`
	Threads     *int64 `yaml:"threads"`

	Format  string `yaml:"format"`
	LLMName string `yaml:"llm_name"`

	StreamMode string `yaml:"stream_mode"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
	MemoryPath    string `yaml:"memory_path"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "loom", "config.yaml")
}

// LoadConfig reads the config file, returning a zero Config when it is
// missing or unreadable.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyRunConfig fills run command variables from the config file for every
// flag the user did not set on the command line.
func applyRunConfig(c *cli.Command, cfg Config,
	temp *float64, topK *int64, topP *float64, tfsZ *float64,
	repeatPenalty *float64, penaltyLastN *int64,
	mirostat *int64, mirostatTau *float64, mirostatEta *float64,
	steps *int64, seed *int64, format *string, llmName *string, streamMode *string,
) {
	if cfg.Temperature != nil && !c.IsSet("temp") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") {
		*topP = *cfg.TopP
	}
	if cfg.TailFreeZ != nil && !c.IsSet("tfs-z") {
		*tfsZ = *cfg.TailFreeZ
	}
	if cfg.RepeatPenalty != nil && !c.IsSet("repeat-penalty") {
		*repeatPenalty = *cfg.RepeatPenalty
	}
	if cfg.PenaltyLastN != nil && !c.IsSet("penalty-last-n") {
		*penaltyLastN = *cfg.PenaltyLastN
	}
	if cfg.Mirostat != nil && !c.IsSet("mirostat") {
		*mirostat = *cfg.Mirostat
	}
	if cfg.MirostatTau != nil && !c.IsSet("mirostat-tau") {
		*mirostatTau = *cfg.MirostatTau
	}
	if cfg.MirostatEta != nil && !c.IsSet("mirostat-eta") {
		*mirostatEta = *cfg.MirostatEta
	}
	if cfg.Steps != nil && !c.IsSet("steps") {
		*steps = *cfg.Steps
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
	if cfg.ContextSize != nil && !c.IsSet("ctx") {
		contextSize = *cfg.ContextSize
	}
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
	if cfg.Format != "" && !c.IsSet("format") {
		*format = cfg.Format
	}
	if cfg.LLMName != "" && !c.IsSet("llm-name") {
		*llmName = cfg.LLMName
	}
	if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
		*streamMode = cfg.StreamMode
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig fills serve command variables from the config file.
func applyServeConfig(c *cli.Command, cfg Config, addr, memoryPath *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MemoryPath != "" && !c.IsSet("memory") {
		*memoryPath = cfg.MemoryPath
	}
	if cfg.ContextSize != nil && !c.IsSet("ctx") {
		contextSize = *cfg.ContextSize
	}
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
}
