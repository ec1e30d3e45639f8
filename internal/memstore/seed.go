package memstore

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Marker strings recognised by the seed file formats.
const (
	sysPromptSplitter = "-=sysPromptSplitter=-"
	charInfoStart     = "-=charInfoStart=-"
	charInfoSplitter  = "-=charInfoSplitter=-"
)

// SeedSystemPrompts loads a splitter-delimited prompt file. Each block
// between "-=sysPromptSplitter=-" lines becomes one systemPrompt entry with
// identifier "generic"; newlines inside a block are flattened away. A
// trailing block without a closing splitter still counts.
func SeedSystemPrompts(s *Store, r io.Reader) (int, error) {
	var cur strings.Builder
	count := 0

	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		_, err := s.Add(TypeSystemPrompt, "generic", cur.String())
		cur.Reset()
		if err == nil {
			count++
		}
		return err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, sysPromptSplitter) {
			if err := flush(); err != nil {
				return count, err
			}
			continue
		}
		cur.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("memstore: read prompts: %w", err)
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}

// SeedCharacterInfo loads a character file. A "-=charInfoStart=-Name" line
// names the character; the following lines up to "-=charInfoSplitter=-"
// are its information block.
func SeedCharacterInfo(s *Store, r io.Reader) (int, error) {
	var info strings.Builder
	name := ""
	count := 0

	flush := func() error {
		if info.Len() == 0 {
			return nil
		}
		_, err := s.Add(TypeCharacterInfo, strings.TrimSpace(name), info.String())
		info.Reset()
		name = ""
		if err == nil {
			count++
		}
		return err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, charInfoSplitter):
			if err := flush(); err != nil {
				return count, err
			}
		case strings.Contains(line, charInfoStart):
			rest := line[strings.Index(line, charInfoStart)+len(charInfoStart):]
			name = rest
		default:
			info.WriteString(line)
		}
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("memstore: read characters: %w", err)
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}

// SeedBannedWords loads a banned-word list into a single entry with
// identifier "all". Lines appearing in exclusions are removed first;
// exclusions may be nil. Nothing is stored when the filtered list is empty.
func SeedBannedWords(s *Store, words io.Reader, exclusions io.Reader) (int, error) {
	raw, err := io.ReadAll(words)
	if err != nil {
		return 0, fmt.Errorf("memstore: read banned words: %w", err)
	}
	full := string(raw)

	if exclusions != nil {
		sc := bufio.NewScanner(exclusions)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				full = strings.ReplaceAll(full, line, "")
			}
		}
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("memstore: read exclusions: %w", err)
		}
	}

	if strings.TrimSpace(full) == "" {
		return 0, nil
	}
	if _, err := s.Add(TypeBannedWords, "all", full); err != nil {
		return 0, err
	}
	return 1, nil
}
