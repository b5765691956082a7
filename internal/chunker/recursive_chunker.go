package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"vaultrag/internal/domain"
)

// DefaultSeparators orders split strategies from coarsest to finest:
// paragraph break, line break, word boundary, anywhere.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits documents into overlapping chunks of bounded size.
// It partitions text with the coarsest separator that occurs in it,
// re-splits oversized pieces with the next finer separator, and finally
// merges adjacent pieces greedily back up to the size limit, starting each
// chunk up to chunkOverlap characters before the end of the previous one.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveChunker validates the configuration and returns a chunker.
// Sizes are measured in characters (runes), not bytes.
func NewRecursiveChunker(chunkSize, chunkOverlap int, separators []string) (*RecursiveChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: separators}, nil
}

// Split chunks each document independently; identical input always yields
// an identical chunk sequence. Empty documents contribute zero chunks.
func (c *RecursiveChunker) Split(documents []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, doc := range documents {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		pieces := c.splitText(doc.Text, c.separators)
		idx := 0
		for _, text := range pieces {
			if text == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				Text:     text,
				Source:   doc.Source,
				Index:    idx,
				Metadata: doc.Metadata,
			})
			idx++
		}
	}
	return chunks, nil
}

// splitText recursively partitions text and merges the resulting pieces
// into chunks no longer than chunkSize.
func (c *RecursiveChunker) splitText(text string, separators []string) []string {
	sep, rest := pickSeparator(text, separators)
	splits := splitBy(text, sep)

	var out []string
	var pending []string
	for _, s := range splits {
		if utf8.RuneCountInString(s) <= c.chunkSize {
			pending = append(pending, s)
			continue
		}
		if len(pending) > 0 {
			out = append(out, c.merge(pending, sep)...)
			pending = nil
		}
		if len(rest) == 0 {
			// Separator list exhausted: fall back to character-level
			// splitting so the size bound always holds.
			out = append(out, c.splitText(s, []string{""})...)
		} else {
			out = append(out, c.splitText(s, rest)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, c.merge(pending, sep)...)
	}
	return out
}

// pickSeparator returns the first separator present in text, along with the
// finer separators remaining after it. The empty separator always matches.
func pickSeparator(text string, separators []string) (string, []string) {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}
	return sep, rest
}

func splitBy(text, sep string) []string {
	if sep == "" {
		// strings.Split with an empty separator yields one rune per piece.
		return strings.Split(text, "")
	}
	return strings.Split(text, sep)
}

// merge greedily joins pieces into chunks up to chunkSize, rejoining with
// the separator they were split on. When a chunk fills up, leading pieces
// are dropped until at most chunkOverlap characters carry over into the
// next chunk.
func (c *RecursiveChunker) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)

	var chunks []string
	var current []string
	total := 0
	for _, p := range pieces {
		plen := utf8.RuneCountInString(p)
		if len(current) > 0 && total+plen+sepLen > c.chunkSize {
			if joined := join(current, sep); joined != "" {
				chunks = append(chunks, joined)
			}
			for total > c.chunkOverlap || (total+plen+sepLen > c.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, p)
		total += plen
	}
	if joined := join(current, sep); joined != "" {
		chunks = append(chunks, joined)
	}
	return chunks
}

func join(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}
