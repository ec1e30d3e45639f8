// Package template renders chat turns for the fixed set of prompt formats
// loom supports. The set is a closed enumeration: there is no runtime
// template parsing, and an unknown format name is a configuration error.
package template

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Alpaca Kind = iota
	Pygmalion
	Pygmalion2
	OpenChat35
	ZephyrBeta
	OpenHermesMistral
)

var kindNames = map[Kind]string{
	Alpaca:            "alpaca",
	Pygmalion:         "pygmalion",
	Pygmalion2:        "pygmalion2",
	OpenChat35:        "openchat-3.5",
	ZephyrBeta:        "zephyr-beta",
	OpenHermesMistral: "openhermes-mistral",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a format name, case-insensitively, to its Kind.
func ParseKind(name string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == lower {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unsupported prompt format %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the supported format names in declaration order.
func Names() []string {
	out := make([]string, 0, len(kindNames))
	for k := Alpaca; k <= OpenHermesMistral; k++ {
		out = append(out, kindNames[k])
	}
	return out
}

// Profile holds the fixed markup for one format. The turn template embeds
// the placeholder [inputText] where the user's text goes.
type Profile struct {
	Kind Kind

	SystemPromptPrefix   string
	SystemPromptSplitter string
	InputPrefix          string
	InputSuffix          string
	OutputPrefix         string

	turn string
}

// Lookup returns the profile for kind with llmName substituted into the
// fields that reference the model's display name.
func Lookup(kind Kind, llmName string) (Profile, error) {
	switch kind {
	case Alpaca:
		return Profile{
			Kind:         kind,
			InputPrefix:  "### Instruction:",
			OutputPrefix: "### Response:",
			turn:         "### Instruction:\n[inputText]\n### Response:\n",
		}, nil
	case Pygmalion:
		return Profile{
			Kind:                 kind,
			SystemPromptPrefix:   llmName + "'s Persona:",
			SystemPromptSplitter: "<START>",
			InputPrefix:          "You:",
			OutputPrefix:         "[" + llmName + "]: ",
			turn:                 "You: [inputText]\n[" + llmName + "]: ",
		}, nil
	case Pygmalion2:
		return Profile{
			Kind:         kind,
			InputPrefix:  "<|user|>",
			OutputPrefix: "<|model|>",
			turn:         "<|user|>[inputText]<|model|>",
		}, nil
	case OpenChat35:
		return Profile{
			Kind:                 kind,
			SystemPromptPrefix:   "GPT4 User",
			SystemPromptSplitter: "<|end_of_turn|>",
			InputPrefix:          "<s>",
			InputSuffix:          "<|end_of_turn|>",
			turn:                 "GPT4 User:\n[inputText]<|end_of_turn|>\nGPT4 Assistant: ",
		}, nil
	case ZephyrBeta:
		return Profile{
			Kind:                 kind,
			SystemPromptPrefix:   "<|system|>",
			SystemPromptSplitter: "</s>",
			InputPrefix:          "<|user|>",
			InputSuffix:          "</s>",
			turn:                 "<|user|>\n[inputText]</s>\n<|assistant|>\n",
		}, nil
	case OpenHermesMistral:
		return Profile{
			Kind:                 kind,
			SystemPromptPrefix:   "<|im_start|>system",
			SystemPromptSplitter: "<|im_end|>",
			InputPrefix:          "<|im_start|>",
			InputSuffix:          "<|im_end|>",
			turn:                 "<|im_start|>user\n[inputText]<|im_end|>\n<|im_start|>assistant\n",
		}, nil
	default:
		return Profile{}, fmt.Errorf("unsupported prompt format %q", kind)
	}
}

// RenderTurn substitutes inputText into the turn template.
func (p Profile) RenderTurn(inputText string) string {
	return strings.ReplaceAll(p.turn, "[inputText]", inputText)
}

// ExpandPrompt prepares a prompt file's contents for use: the {llmName}
// placeholder becomes the model's display name and a leading space keeps
// the first word from fusing with the BOS piece.
func ExpandPrompt(text, llmName string) string {
	return " " + strings.ReplaceAll(text, "{llmName}", llmName)
}
