package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniqueWords builds text out of distinct words so overlap regions can be
// identified unambiguously when reconstructing the source.
func uniqueWords(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "word%04d ", i)
	}
	return strings.TrimSuffix(b.String(), " ")
}

// reconstruct strips the overlap seed from every chunk after the first and
// concatenates the rest. The seed of a chunk is the longest prefix (up to
// overlap characters) that is also a suffix of the text rebuilt so far.
func reconstruct(t *testing.T, chunks []string, overlap int) string {
	t.Helper()
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		max := overlap
		if max > len(c) {
			max = len(c)
		}
		k := 0
		for n := max; n > 0; n-- {
			if strings.HasSuffix(b.String(), c[:n]) {
				k = n
				break
			}
		}
		b.WriteString(c[k:])
	}
	return b.String()
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter(100, 20)
	text := uniqueWords(200)
	first := s.Split(text)
	second := s.Split(text)
	require.Equal(t, first, second)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSplitter(100, 20)
	text := uniqueWords(300) + "\n\n" + uniqueWords(100) + "\nline. " + uniqueWords(50)
	for i, c := range s.Split(text) {
		assert.LessOrEqual(t, len(c), 100, "chunk %d too long", i)
	}
}

func TestSplitLossless(t *testing.T) {
	s := NewSplitter(100, 20)
	text := uniqueWords(120) + "\n\n" + uniqueWords(80)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, text, reconstruct(t, chunks, 20))
}

func TestSplitOverlapSeedsNextChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	chunks := s.Split(uniqueWords(200))
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		seed := prev[len(prev)-20:]
		assert.True(t, strings.HasPrefix(chunks[i], seed),
			"chunk %d does not start with the previous chunk's tail", i)
	}
}

func TestSplitMedicalReportScenario(t *testing.T) {
	// 1000 characters with two paragraph breaks, chunked at 512/50.
	para1 := uniqueWords(50)
	para2 := uniqueWords(40)
	text := para1 + "\n\n" + para2 + "\n\n"
	text += uniqueWords(200)[:1000-len(text)]
	require.Len(t, text, 1000)

	s := NewSplitter(512, 50)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 512, "chunk %d too long", i)
	}
	assert.Equal(t, text, reconstruct(t, chunks, 50))
}

func TestSplitLongWordFallsBackToSlicing(t *testing.T) {
	s := NewSplitter(100, 10)
	text := strings.Repeat("x", 950)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	total := 0
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 100, "chunk %d too long", i)
		total += len(c)
	}
	// slicing is contiguous, so sizes minus overlaps cover the input
	assert.GreaterOrEqual(t, total, len(text))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(512, 50)
	chunks := s.Split("BP: 130/85 mmHg")
	require.Len(t, chunks, 1)
	assert.Equal(t, "BP: 130/85 mmHg", chunks[0])
}

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(512, 50)
	assert.Empty(t, s.Split(""))
}

func TestSplitMultiByteRunKeepsRuneBoundaries(t *testing.T) {
	// No separators at all, so this exercises the fixed-slicing fallback.
	text := strings.Repeat("患者の血圧は正常です", 40)
	s := NewSplitter(100, 20)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100, "chunk %d too long", i)
	}
}

func TestSplitMultiByteWordsOverlapOnRuneBoundaries(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = "患者の血圧は正常です"
	}
	text := strings.Join(words, " ")
	s := NewSplitter(100, 33)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100, "chunk %d too long", i)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		seed := string(prev[len(prev)-33:])
		assert.True(t, strings.HasPrefix(chunks[i], seed),
			"chunk %d does not start with the previous chunk's tail", i)
	}
}

func TestSplitClampsBadOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	for _, c := range s.Split(uniqueWords(100)) {
		assert.LessOrEqual(t, len(c), 100)
	}
}
