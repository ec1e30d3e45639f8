package template

import (
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	for _, name := range Names() {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
		if k.String() != name {
			t.Fatalf("round trip %q -> %v", name, k)
		}
	}
	if k, err := ParseKind("  Zephyr-Beta "); err != nil || k != ZephyrBeta {
		t.Fatalf("case-insensitive parse: %v, %v", k, err)
	}
	if _, err := ParseKind("chatml-9000"); err == nil {
		t.Fatal("unknown format must be rejected")
	}
}

func TestRenderTurn(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{ZephyrBeta, "<|user|>\nping</s>\n<|assistant|>\n"},
		{OpenHermesMistral, "<|im_start|>user\nping<|im_end|>\n<|im_start|>assistant\n"},
		{OpenChat35, "GPT4 User:\nping<|end_of_turn|>\nGPT4 Assistant: "},
		{Alpaca, "### Instruction:\nping\n### Response:\n"},
	}
	for _, tc := range cases {
		p, err := Lookup(tc.kind, "Loom")
		if err != nil {
			t.Fatalf("Lookup(%v): %v", tc.kind, err)
		}
		if got := p.RenderTurn("ping"); got != tc.want {
			t.Fatalf("%v: RenderTurn = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestLookupSubstitutesName(t *testing.T) {
	p, err := Lookup(Pygmalion, "Ada")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.SystemPromptPrefix != "Ada's Persona:" {
		t.Fatalf("SystemPromptPrefix = %q", p.SystemPromptPrefix)
	}
	if p.OutputPrefix != "[Ada]: " {
		t.Fatalf("OutputPrefix = %q", p.OutputPrefix)
	}
	if got := p.RenderTurn("hi"); !strings.Contains(got, "[Ada]: ") {
		t.Fatalf("RenderTurn = %q", got)
	}
}

func TestExpandPrompt(t *testing.T) {
	got := ExpandPrompt("You are {llmName}, a helper.", "Loom")
	if got != " You are Loom, a helper." {
		t.Fatalf("ExpandPrompt = %q", got)
	}
}
