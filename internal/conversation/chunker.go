package conversation

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
)

// Separators tried in order when a piece is still longer than the chunk size.
var chunkSeparators = []string{"\n\n", "\n", " "}

// Chunker splits document text into overlapping chunks, preferring paragraph,
// then line, then word boundaries. Sizes are counted in runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a chunker; non-positive size uses 500 and an overlap
// outside [0, size) uses a tenth of size.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return Chunker{size: size, overlap: overlap}
}

// Split returns the chunks of text in document order. Every chunk is at most
// the configured size.
func (c Chunker) Split(text string) []string {
	if c.size <= 0 {
		c = NewChunker(c.size, c.overlap)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return c.split(text, chunkSeparators)
}

func (c Chunker) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	if len(seps) == 0 {
		return c.hardSplit(text)
	}

	sep := seps[0]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return c.split(text, seps[1:])
	}

	var out, fitting []string
	flush := func() {
		if len(fitting) > 0 {
			out = append(out, c.merge(fitting, sep)...)
			fitting = nil
		}
	}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) <= c.size {
			fitting = append(fitting, p)
			continue
		}
		flush()
		out = append(out, c.split(p, seps[1:])...)
	}
	flush()
	return out
}

// merge packs pieces into chunks joined by sep, starting each new chunk with
// the trailing pieces of the previous one that fit in the overlap.
func (c Chunker) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var chunks, window []string
	total := 0

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		joined := total + n
		if len(window) > 0 {
			joined += sepLen
		}
		if joined > c.size && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, sep))
			for len(window) > 0 && (total > c.overlap || total+sepLen+n > c.size) {
				total -= utf8.RuneCountInString(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += sepLen
		}
		total += n
		window = append(window, p)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, sep))
	}
	return chunks
}

func (c Chunker) hardSplit(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
