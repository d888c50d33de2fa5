// Package transcribe runs audio files through whisper.cpp and canonicalizes
// the result into a timestamped markdown transcript ready for the
// timestamp-aware chunker.
package transcribe

import (
	"context"
	"fmt"
	"strings"
)

// Segment is one (start, end, text) span recognized by the ASR backend.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Transcript is a full transcription result.
type Transcript struct {
	Segments         []Segment
	DetectedLanguage string
	Duration         float64
}

// ASR abstracts the whisper.cpp bindings' model.NewContext /
// context.Process / context.NextSegment shape so the pipeline can be
// tested against a fake without loading a real model.
type ASR interface {
	Transcribe(ctx context.Context, path, languageHint string) (Transcript, error)
	Inspect(ctx context.Context, path string) (MediaInfo, error)
}

// MediaInfo is what the media inspector collaborator reports.
type MediaInfo struct {
	Duration   float64
	Format     string
	Bitrate    int
	SampleRate int
}

// ToMarkdown renders a transcript as a markdown document with an inline
// timestamp marker per segment, matching the canonicalization the store
// contract requires: deterministic for equal inputs.
func ToMarkdown(t Transcript) string {
	var b strings.Builder
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%.2f-%.2f] %s", seg.Start, seg.End, text)
	}
	return b.String()
}
