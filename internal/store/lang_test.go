package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRegconfigKnownLanguage(t *testing.T) {
	assert.Equal(t, "spanish", resolveRegconfig("es"))
	assert.Equal(t, "french", resolveRegconfig("FR"))
	assert.Equal(t, "english", resolveRegconfig(" en "))
}

func TestResolveRegconfigUnknownFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "english", resolveRegconfig(""))
	assert.Equal(t, "english", resolveRegconfig("zz"))
	assert.Equal(t, "english", resolveRegconfig("klingon"))
}
