package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/semaphore"
)

func TestTypeSemaphoreAcquireUpToCapsAtAvailable(t *testing.T) {
	ts := &typeSemaphore{sem: semaphore.NewWeighted(3), capacity: 3}
	assert.Equal(t, 3, ts.tryAcquireUpTo(5))
	assert.Equal(t, 0, ts.tryAcquireUpTo(1))
}

func TestTypeSemaphoreReleaseFreesCapacity(t *testing.T) {
	ts := &typeSemaphore{sem: semaphore.NewWeighted(2), capacity: 2}
	ts.tryAcquireUpTo(2)
	ts.release(1)
	assert.Equal(t, 1, ts.tryAcquireUpTo(5))
}

func TestTypeSemaphoreReleaseZeroIsNoop(t *testing.T) {
	ts := &typeSemaphore{sem: semaphore.NewWeighted(1), capacity: 1}
	ts.release(0)
	assert.Equal(t, 1, ts.tryAcquireUpTo(5))
}

func TestMetaStringReturnsEmptyForMissingOrWrongType(t *testing.T) {
	assert.Equal(t, "", metaString(map[string]any{}, "k"))
	assert.Equal(t, "", metaString(map[string]any{"k": 5}, "k"))
	assert.Equal(t, "v", metaString(map[string]any{"k": "v"}, "k"))
}

func TestMetaBoolUsesDefaultWhenAbsentOrWrongType(t *testing.T) {
	assert.True(t, metaBool(map[string]any{}, "k", true))
	assert.False(t, metaBool(map[string]any{"k": "nope"}, "k", true))
	assert.False(t, metaBool(map[string]any{"k": false}, "k", true))
}

func TestMetaIntHandlesJSONFloat64(t *testing.T) {
	assert.Equal(t, 3, metaInt(map[string]any{"k": float64(3)}, "k", 0))
	assert.Equal(t, 7, metaInt(map[string]any{}, "k", 7))
}

func TestMetaStringSliceExtractsStringsFromAnySlice(t *testing.T) {
	got := metaStringSlice(map[string]any{"k": []any{"a", "b", 1}}, "k")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMetaStringSliceNilForMissingKey(t *testing.T) {
	assert.Nil(t, metaStringSlice(map[string]any{}, "k"))
}

func TestIsAudioPathRecognizesSupportedExtensions(t *testing.T) {
	assert.True(t, isAudioPath("clip.mp3"))
	assert.True(t, isAudioPath("clip.wav"))
	assert.True(t, isAudioPath("a/b/c.flac"))
	assert.False(t, isAudioPath("doc.md"))
	assert.False(t, isAudioPath("clip.WAV"))
}

func TestOrAutoDefaultsEmptyHintToAuto(t *testing.T) {
	assert.Equal(t, "auto", orAuto(""))
	assert.Equal(t, "es", orAuto("es"))
}
