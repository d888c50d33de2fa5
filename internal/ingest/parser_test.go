package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeReadFile(content string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) { return []byte(content), nil }
}

func TestDefaultParsersStripsFrontMatter(t *testing.T) {
	parsers := DefaultParsers(fakeReadFile("---\ntitle: x\n---\n# H\n\nbody"))
	doc, err := parsers.Parse("a.md", ".md")
	require.NoError(t, err)
	assert.Equal(t, "# H\n\nbody", doc.Text)
}

func TestDefaultParsersTitleFromFirstH1(t *testing.T) {
	parsers := DefaultParsers(fakeReadFile("# My Title\n\nbody"))
	doc, err := parsers.Parse("a.md", ".md")
	require.NoError(t, err)
	assert.Equal(t, "My Title", doc.Title)
}

func TestDefaultParsersTitleFallsBackToFileName(t *testing.T) {
	parsers := DefaultParsers(fakeReadFile("no heading here"))
	doc, err := parsers.Parse("/tmp/notes.txt", ".txt")
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.Title)
}

func TestParsersRejectsUnregisteredFileType(t *testing.T) {
	parsers := DefaultParsers(fakeReadFile("x"))
	_, err := parsers.Parse("a.pdf", ".pdf")
	require.Error(t, err)
	var unsupported *ErrUnsupportedFileType
	assert.ErrorAs(t, err, &unsupported)
}

func TestParsersDispatchIsCaseInsensitive(t *testing.T) {
	parsers := DefaultParsers(fakeReadFile("hi"))
	_, err := parsers.Parse("a.MD", ".MD")
	assert.NoError(t, err)
}
