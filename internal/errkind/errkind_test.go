package errkind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFindsWrappedKind(t *testing.T) {
	err := New(PermanentInput, errors.New("bad file"))
	kind, ok := Classify(err)
	assert.True(t, ok)
	assert.Equal(t, PermanentInput, kind)
}

func TestClassifyUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(ConfigurationError, errors.New("dim mismatch"))
	wrapped := fmt.Errorf("embed batch: %w", inner)
	kind, ok := Classify(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ConfigurationError, kind)
}

func TestClassifyUnclassifiedReturnsFalse(t *testing.T) {
	_, ok := Classify(errors.New("plain"))
	assert.False(t, ok)
}

func TestRetryableTransientAndStoreErrorsAreRetryable(t *testing.T) {
	assert.True(t, Retryable(New(TransientExternal, nil)))
	assert.True(t, Retryable(New(StoreError, nil)))
}

func TestRetryablePermanentAndConfigAreNotRetryable(t *testing.T) {
	assert.False(t, Retryable(New(PermanentInput, nil)))
	assert.False(t, Retryable(New(ConfigurationError, nil)))
}

func TestRetryableUnclassifiedDefaultsTrue(t *testing.T) {
	assert.True(t, Retryable(errors.New("plain")))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := New(StoreError, errors.New("deadlock"))
	assert.Contains(t, err.Error(), "deadlock")
	assert.Contains(t, err.Error(), "store_error")
}
