package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackoffSecondsDoublesUntilCap(t *testing.T) {
	assert.Equal(t, 0, backoffSeconds(0))
	assert.Equal(t, 1, backoffSeconds(1))
	assert.Equal(t, 2, backoffSeconds(2))
	assert.Equal(t, 4, backoffSeconds(3))
	assert.Equal(t, 8, backoffSeconds(4))
	assert.Equal(t, 32, backoffSeconds(6))
	assert.Equal(t, 60, backoffSeconds(7))
}

func TestBackoffSecondsCapsAtSixty(t *testing.T) {
	assert.Equal(t, 60, backoffSeconds(10))
	assert.Equal(t, 60, backoffSeconds(20))
}
