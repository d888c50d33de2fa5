package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSingleSectionUnderLimitIsOneChunk(t *testing.T) {
	text := "# Title\n\nShort body."
	chunks := Split(text, Options{MaxChars: 1000, Overlap: 200})
	require.Len(t, chunks, 1)
	assert.Equal(t, "Title", chunks[0].Headers)
	assert.Contains(t, chunks[0].Text, "Short body.")
}

func TestSplitRecordsHierarchicalHeaderPath(t *testing.T) {
	text := "# Book\n\nintro\n\n## Chapter One\n\nchapter text\n\n### Section A\n\nsection text"
	// MaxChars is below the 64-char H1 body and the 41-char H2 body, so both
	// are split further, while every leaf fits.
	chunks := Split(text, Options{MaxChars: 30, Overlap: 5})
	var gotPaths []string
	for _, c := range chunks {
		gotPaths = append(gotPaths, c.Headers)
	}
	assert.Contains(t, gotPaths, "Book")
	assert.Contains(t, gotPaths, "Book > Chapter One")
	assert.Contains(t, gotPaths, "Book > Chapter One > Section A")
}

func TestSplitChunksAreContiguouslyIndexed(t *testing.T) {
	text := "# A\n\n" + strings.Repeat("word ", 500) + "\n\n# B\n\n" + strings.Repeat("more ", 500)
	chunks := Split(text, Options{MaxChars: 300, Overlap: 50})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplitOversizedLeafFallsBackToSemanticSplitting(t *testing.T) {
	body := strings.Repeat("This is a sentence. ", 200)
	chunks := Split(body, Options{MaxChars: 300, Overlap: 50})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 400)
	}
}

func TestSplitExactlyMaxCharsEmitsOneChunk(t *testing.T) {
	body := strings.Repeat("a", 1000)
	chunks := Split(body, Options{MaxChars: 1000, Overlap: 200})
	require.Len(t, chunks, 1)
	assert.Equal(t, 1000, len(chunks[0].Text))
}

func TestSemanticSplitRespectsParagraphBoundariesBeforeSentence(t *testing.T) {
	text := strings.Repeat("Paragraph one sentence. ", 10) + "\n\n" + strings.Repeat("Paragraph two sentence. ", 10)
	pieces := semanticSplit(text, Options{MaxChars: 150, Overlap: 20})
	require.Greater(t, len(pieces), 1)
}

func TestSemanticSplitLastResortChopsMidWord(t *testing.T) {
	text := strings.Repeat("x", 900)
	pieces := semanticSplit(text, Options{MaxChars: 100, Overlap: 10})
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 100)
	}
}

func TestSplitSegmentsProducesNonOverlappingOrderedSpans(t *testing.T) {
	segs := []Segment{
		{Start: 0, End: 2, Text: "hello there"},
		{Start: 2, End: 4, Text: "general"},
		{Start: 4, End: 6, Text: "kenobi you are"},
		{Start: 6, End: 8, Text: "a bold one"},
	}
	chunks := SplitSegments(segs, Options{MaxChars: 20, Overlap: 5})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.NotNil(t, c.StartTimestamp)
		require.NotNil(t, c.EndTimestamp)
		assert.Less(t, *c.StartTimestamp, *c.EndTimestamp)
	}
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, *chunks[i].StartTimestamp, *chunks[i-1].StartTimestamp)
	}
}

func TestSplitSegmentsSkipsBlankSegments(t *testing.T) {
	segs := []Segment{
		{Start: 0, End: 1, Text: "  "},
		{Start: 1, End: 2, Text: "real text"},
	}
	chunks := SplitSegments(segs, Options{MaxChars: 100, Overlap: 10})
	require.Len(t, chunks, 1)
	assert.Equal(t, "real text", chunks[0].Text)
}
