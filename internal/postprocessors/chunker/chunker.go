// Package chunker splits extracted text into overlapping chunks.
//
// Three strategies are provided:
//
//   - Words: word sliding window, overlap counted in words
//   - Sentences: sentence-aware accumulation with a literal character overlap
//   - Window: character sliding window that never reflows whitespace
//
// All strategies return only non-empty chunks. Sizes are counted in runes.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy splits text into chunks of roughly size units with overlap.
type Strategy func(text string, size, overlap int) []string

// Strategy names.
const (
	StrategyWords     = "words"
	StrategySentences = "sentences"
	StrategyWindow    = "window"
)

var strategies = map[string]Strategy{
	StrategyWords:     Words,
	StrategySentences: Sentences,
	StrategyWindow:    Window,
}

// ByName returns a strategy by name.
func ByName(name string) (Strategy, bool) {
	s, ok := strategies[strings.ToLower(name)]
	return s, ok
}

// sentenceEnd matches terminal punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`([.!?])(\s+)`)

// Words splits text on whitespace into windows of size words, stepping by
// size-overlap. An overlap >= size is clamped to size-1.
func Words(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap >= size {
		overlap = max(0, size-1)
	}
	overlap = max(0, overlap)

	tokens := strings.Fields(text)
	n := len(tokens)
	step := max(1, size-overlap)

	chunks := make([]string, 0, n/step+1)
	for i := 0; i < n; i += step {
		j := min(i+size, n)
		chunks = append(chunks, strings.Join(tokens[i:j], " "))
		if j == n {
			break
		}
	}
	return nonEmpty(chunks)
}

// Sentences accumulates sentence segments until adding the next one would
// exceed target while the buffer already holds at least target/2 runes.
// Each new buffer starts with the last overlap runes of the previous chunk.
// When no sentence chunk is produced it falls back to Window.
func Sentences(text string, target, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if target <= 0 {
		return []string{text}
	}

	var (
		chunks []string
		buf    strings.Builder
		length int
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		if c := strings.TrimSpace(buf.String()); c != "" {
			chunks = append(chunks, c)
		}
		buf.Reset()
		length = 0
	}

	threshold := max(1, target/2)
	for _, seg := range splitSentences(text) {
		n := utf8.RuneCountInString(seg)
		if length+n > target && length >= threshold {
			flush()
			if overlap > 0 && len(chunks) > 0 {
				if tail := lastRunes(chunks[len(chunks)-1], overlap); tail != "" {
					buf.WriteString(tail)
					length = utf8.RuneCountInString(tail)
				}
			}
		}
		buf.WriteString(seg)
		length += n
	}
	flush()

	if len(chunks) == 0 {
		return Window(text, target, overlap)
	}
	return nonEmpty(chunks)
}

// Window cuts text into target-rune windows stepping by target-overlap.
// Whitespace is kept as is.
func Window(text string, target, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if target <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	step := max(1, target-max(0, overlap))

	chunks := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		chunks = append(chunks, string(runes[i:min(i+target, len(runes))]))
	}
	return nonEmpty(chunks)
}

// splitSentences cuts text after every punctuation+whitespace run. The
// punctuation and whitespace stay with the preceding sentence.
func splitSentences(text string) []string {
	matches := sentenceEnd.FindAllStringIndex(text, -1)
	segs := make([]string, 0, len(matches)+1)
	prev := 0
	for _, m := range matches {
		segs = append(segs, text[prev:m[1]])
		prev = m[1]
	}
	if prev < len(text) {
		segs = append(segs, text[prev:])
	}
	return segs
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	return string(r[len(r)-n:])
}

func nonEmpty(chunks []string) []string {
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
