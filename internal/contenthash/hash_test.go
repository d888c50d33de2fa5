package contenthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	a := Hash("hello world")
	b := Hash("hello world")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashDiffersOnContentChange(t *testing.T) {
	assert.NotEqual(t, Hash("hello world"), Hash("hello world!"))
}

func TestCanonicalizeCollapsesWhitespaceAndNormalizesNewlines(t *testing.T) {
	got := Canonicalize("line one\r\nline\ttwo   three\r\n\n\n\nline four\n")
	assert.Equal(t, "line one\nline two three\n\nline four", got)
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	once := Canonicalize("  a\r\n\r\n\r\nb  ")
	twice := Canonicalize(once)
	assert.Equal(t, once, twice)
}

func TestHashOfCanonicalizedTextIsStableAcrossEquivalentInputs(t *testing.T) {
	a := Hash(Canonicalize("Title\r\n\r\nBody text.\r\n"))
	b := Hash(Canonicalize("Title\n\nBody text.\n"))
	assert.Equal(t, a, b)
}
