// Package chunk splits tensor field text into overlapping chunks before
// vectorization, following the index text preprocessing settings.
package chunk

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/tensordex/internal/domain/index"
)

// Split breaks text into chunks of cfg.SplitLength units with
// cfg.SplitOverlap units carried over between consecutive chunks.
// Empty input yields no chunks.
func Split(text string, cfg index.TextPreprocessing) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	switch cfg.SplitMethod {
	case index.SplitCharacter:
		return windows(splitCharacters(text), cfg.SplitLength, cfg.SplitOverlap, "")
	case index.SplitWord:
		return windows(strings.Fields(text), cfg.SplitLength, cfg.SplitOverlap, " ")
	default:
		return windows(splitSentences(text), cfg.SplitLength, cfg.SplitOverlap, " ")
	}
}

// windows groups units into chunks of length with the given overlap.
func windows(units []string, length, overlap int, sep string) []string {
	if len(units) == 0 {
		return nil
	}
	if length <= 0 {
		length = 1
	}
	step := length - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(units); start += step {
		end := start + length
		if end > len(units) {
			end = len(units)
		}
		chunk := strings.TrimSpace(strings.Join(units[start:end], sep))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(units) {
			break
		}
	}
	return chunks
}

func splitCharacters(text string) []string {
	runes := []rune(text)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
// The terminator stays attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var buf strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		buf.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		// consume a run of terminators (e.g. "?!" or "...")
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
			buf.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(buf.String()); s != "" {
				sentences = append(sentences, s)
			}
			buf.Reset()
		}
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
