package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMarkdownFormatsEachSegmentWithTimestamp(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Start: 0, End: 1.5, Text: "hola"},
		{Start: 1.5, End: 3, Text: "mundo"},
	}}
	md := ToMarkdown(tr)
	assert.Equal(t, "[0.00-1.50] hola\n\n[1.50-3.00] mundo", md)
}

func TestToMarkdownSkipsBlankSegments(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Start: 0, End: 1, Text: "  "},
		{Start: 1, End: 2, Text: "hello"},
	}}
	assert.Equal(t, "[1.00-2.00] hello", ToMarkdown(tr))
}

func TestToMarkdownEmptyTranscriptIsEmptyString(t *testing.T) {
	assert.Equal(t, "", ToMarkdown(Transcript{}))
}
