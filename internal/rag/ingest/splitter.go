package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocChat/internal/config"
)

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " "}

// TextSegment is one chunk of a text. Overlap is the number of leading bytes
// repeated from the previous segment and Offset is where Text starts in the source.
type TextSegment struct {
	Text    string
	Offset  int
	Overlap int
}

// SplitText cuts text into segments of at most chunkSize bytes. Consecutive
// segments share up to chunkOverlap bytes; dropping each segment's Overlap
// prefix and concatenating gives back the original text.
func SplitText(text string, chunkSize int, chunkOverlap int) []TextSegment {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}

	// If text is already small enough, just return it
	if len(text) <= chunkSize {
		return []TextSegment{{Text: text}}
	}

	return mergeAtoms(splitAtoms(text, chunkSize, separators), chunkSize, chunkOverlap)
}

// splitAtoms breaks text on the first separator it contains, recursing into the
// finer separators for any piece that is still too long. Separators stay
// attached to the piece before them.
func splitAtoms(text string, limit int, seps []string) []string {
	if len(text) <= limit {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardCut(text, limit)
	}

	sep := seps[0]
	if !strings.Contains(text, sep) {
		return splitAtoms(text, limit, seps[1:])
	}

	var atoms []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= limit {
			atoms = append(atoms, part)
			continue
		}
		atoms = append(atoms, splitAtoms(part, limit, seps[1:])...)
	}
	return atoms
}

// hardCut is the last resort: fixed-size pieces, moved back to a rune boundary when possible.
func hardCut(text string, limit int) []string {
	var pieces []string
	for start := 0; start < len(text); {
		end := start + limit
		if end >= len(text) {
			pieces = append(pieces, text[start:])
			break
		}
		cut := end
		for cut > start && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == start {
			// a single rune wider than limit
			cut = end
		}
		pieces = append(pieces, text[start:cut])
		start = cut
	}
	return pieces
}

func mergeAtoms(atoms []string, limit int, overlap int) []TextSegment {
	var segments []TextSegment
	var current strings.Builder
	currentOverlap := 0
	offset := 0

	for _, atom := range atoms {
		if current.Len()+len(atom) > limit && current.Len() > currentOverlap {
			prev := current.String()
			segments = append(segments, TextSegment{Text: prev, Offset: offset - len(prev), Overlap: currentOverlap})

			// start the next chunk with the end of the previous one, as much as still fits next to the atom
			prefix := overlapSuffix(prev, min(overlap, limit-len(atom)))
			current.Reset()
			current.WriteString(prefix)
			currentOverlap = len(prefix)
		}
		current.WriteString(atom)
		offset += len(atom)
	}

	if current.Len() > currentOverlap {
		last := current.String()
		segments = append(segments, TextSegment{Text: last, Offset: offset - len(last), Overlap: currentOverlap})
	}
	return segments
}

// overlapSuffix returns at most n trailing bytes of s, starting on a rune
// boundary and, when there is one, right after a word break.
func overlapSuffix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n > len(s) {
		n = len(s)
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	suffix := s[start:]
	if idx := strings.IndexAny(suffix, " \n"); idx >= 0 && idx+1 < len(suffix) {
		suffix = suffix[idx+1:]
	}
	return suffix
}
