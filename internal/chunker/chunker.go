package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 512 // characters
	defaultChunkOverlap = 50  // characters
)

// defaultSeparators is the split priority: paragraph breaks, line breaks,
// sentence breaks, word breaks, then fixed-length character slicing.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits text into overlapping chunks of at most ChunkSize
// characters using a recursive separator strategy. Separators stay attached
// to the piece that precedes them, so concatenating the produced pieces
// reconstructs the input exactly. Sizes and overlaps count characters
// (runes), not bytes, so multi-byte text is never cut mid-rune.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a splitter with the default separator priority.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = defaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split breaks text into chunks of at most chunkSize characters, each chunk
// after the first starting with up to chunkOverlap trailing characters of
// the previous chunk. Same input and parameters always yield the same
// output. A chunk may exceed chunkSize only when the separator list does not
// end with "" and a single unsplittable piece is longer than chunkSize; such
// pieces are emitted whole rather than truncated.
func (s *Splitter) Split(text string) []string {
	return s.merge(s.split(text, s.separators))
}

// split produces ordered pieces no longer than chunkSize where possible,
// recursing into lower-priority separators for oversized pieces.
func (s *Splitter) split(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		// unsplittable piece, emitted whole
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		return s.sliceFixed(text)
	}
	if !strings.Contains(text, sep) {
		return s.split(text, seps[1:])
	}

	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= s.chunkSize {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, s.split(part, seps[1:])...)
	}
	return pieces
}

// sliceFixed is the terminal fallback: contiguous character slices sized so
// that a full overlap seed still fits under the chunk size bound.
func (s *Splitter) sliceFixed(text string) []string {
	stride := s.chunkSize - s.chunkOverlap
	if stride <= 0 {
		stride = s.chunkSize
	}
	runes := []rune(text)
	var pieces []string
	for i := 0; i < len(runes); i += stride {
		end := i + stride
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}

// merge assembles pieces into chunks up to chunkSize characters, seeding each
// new chunk with trailing context from the chunk just emitted.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	curLen, seedLen := 0, 0
	for _, p := range pieces {
		pLen := utf8.RuneCountInString(p)
		if curLen > seedLen && curLen+pLen > s.chunkSize {
			prev := cur.String()
			chunks = append(chunks, prev)
			seed := s.overlapSeed(prev, pLen)
			cur.Reset()
			cur.WriteString(seed)
			curLen = utf8.RuneCountInString(seed)
			seedLen = curLen
		}
		cur.WriteString(p)
		curLen += pLen
	}
	if curLen > seedLen {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// overlapSeed returns the trailing chunkOverlap characters of prev, trimmed
// so that seed plus the next piece stays within chunkSize.
func (s *Splitter) overlapSeed(prev string, nextLen int) string {
	n := s.chunkOverlap
	if room := s.chunkSize - nextLen; n > room {
		n = room
	}
	if n <= 0 {
		return ""
	}
	runes := []rune(prev)
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[len(runes)-n:])
}
