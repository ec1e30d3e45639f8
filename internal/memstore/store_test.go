package memstore

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	added, err := s.Add(TypeSystemPrompt, "generic", "be helpful")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.ID == "" {
		t.Fatal("Add assigned no id")
	}
	if _, err := s.Add(TypeCharacterInfo, "Ada", "a mathematician"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("reopened Len = %d, want 2", reopened.Len())
	}
	got, err := reopened.Get(added.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "be helpful" || got.Type != TypeSystemPrompt {
		t.Fatalf("Get = %+v", got)
	}

	if err := reopened.Delete(added.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reopened.Get(added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreListAndFind(t *testing.T) {
	s, _ := Open("")
	s.Add(TypeSystemPrompt, "generic", "one")
	s.Add(TypeSystemPrompt, "generic", "two")
	s.Add(TypeCharacterInfo, "Ada", "info")

	if got := len(s.List(TypeSystemPrompt)); got != 2 {
		t.Fatalf("List(systemPrompt) = %d entries, want 2", got)
	}
	if got := len(s.List("")); got != 3 {
		t.Fatalf("List(all) = %d entries, want 3", got)
	}
	if got := s.Find(TypeCharacterInfo, "Ada"); len(got) != 1 || got[0].Content != "info" {
		t.Fatalf("Find = %+v", got)
	}
}

func TestSeedSystemPrompts(t *testing.T) {
	input := strings.NewReader(
		"first line\nsecond line\n-=sysPromptSplitter=-\nother prompt\n-=sysPromptSplitter=-\ntrailing\n")
	s, _ := Open("")
	n, err := SeedSystemPrompts(s, input)
	if err != nil {
		t.Fatalf("SeedSystemPrompts: %v", err)
	}
	if n != 3 {
		t.Fatalf("seeded %d prompts, want 3", n)
	}
	got := s.List(TypeSystemPrompt)
	if got[0].Content != "first linesecond line" {
		t.Fatalf("block newlines not flattened: %q", got[0].Content)
	}
	if got[2].Content != "trailing" {
		t.Fatalf("trailing block = %q", got[2].Content)
	}
}

func TestSeedCharacterInfo(t *testing.T) {
	input := strings.NewReader(
		"-=charInfoStart=-Ada\nloves math\nand engines\n-=charInfoSplitter=-\n" +
			"-=charInfoStart=-Brian\nwrites C\n-=charInfoSplitter=-\n")
	s, _ := Open("")
	n, err := SeedCharacterInfo(s, input)
	if err != nil {
		t.Fatalf("SeedCharacterInfo: %v", err)
	}
	if n != 2 {
		t.Fatalf("seeded %d characters, want 2", n)
	}
	ada := s.Find(TypeCharacterInfo, "Ada")
	if len(ada) != 1 || ada[0].Content != "loves mathand engines" {
		t.Fatalf("Ada = %+v", ada)
	}
	if got := s.Find(TypeCharacterInfo, "Brian"); len(got) != 1 {
		t.Fatalf("Brian = %+v", got)
	}
}

func TestSeedBannedWords(t *testing.T) {
	s, _ := Open("")
	n, err := SeedBannedWords(s,
		strings.NewReader("alpha\nbeta\ngamma\n"),
		strings.NewReader("beta\n"))
	if err != nil {
		t.Fatalf("SeedBannedWords: %v", err)
	}
	if n != 1 {
		t.Fatalf("seeded %d lists, want 1", n)
	}
	got := s.Find(TypeBannedWords, "all")
	if len(got) != 1 || strings.Contains(got[0].Content, "beta") {
		t.Fatalf("exclusion not applied: %+v", got)
	}

	// An empty filtered list stores nothing.
	n, err = SeedBannedWords(s, strings.NewReader("x\n"), strings.NewReader("x\n"))
	if err != nil || n != 0 {
		t.Fatalf("empty list: n=%d err=%v", n, err)
	}
}
