package chunker

import "strings"

// Segment is one ASR-produced span of transcript text.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// SplitSegments implements the timestamp-aware variant of §4.5: segments
// accumulate until the running text reaches MaxChars, then the chunk is
// emitted with start/end timestamps spanning its first and last segment.
// Overlap re-includes trailing segments from the prior chunk whose
// combined text length does not exceed Overlap.
func SplitSegments(segments []Segment, opt Options) []Chunk {
	opt = opt.normalize()
	var out []Chunk
	var cur []Segment
	curLen := 0
	idx := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		start := cur[0].Start
		end := cur[len(cur)-1].End
		out = append(out, Chunk{
			Index:          idx,
			Text:           joinSegments(cur),
			StartTimestamp: &start,
			EndTimestamp:   &end,
		})
		idx++
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		seg.Text = text
		extra := len(text)
		if curLen > 0 {
			extra++ // joining space
		}
		if curLen > 0 && curLen+extra > opt.MaxChars {
			flush()
			cur = tailSegments(cur, opt.Overlap)
			curLen = segmentsLen(cur)
			extra = len(text)
			if curLen > 0 {
				extra++
			}
		}
		cur = append(cur, seg)
		curLen += extra
	}
	flush()
	return out
}

func joinSegments(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

func segmentsLen(segs []Segment) int {
	if len(segs) == 0 {
		return 0
	}
	n := len(segs) - 1 // joining spaces
	for _, s := range segs {
		n += len(s.Text)
	}
	return n
}

func tailSegments(cur []Segment, overlap int) []Segment {
	if overlap <= 0 || len(cur) == 0 {
		return nil
	}
	n := 0
	cut := len(cur)
	for i := len(cur) - 1; i >= 0; i-- {
		add := len(cur[i].Text)
		if n > 0 {
			add++
		}
		if n+add > overlap {
			break
		}
		n += add
		cut = i
	}
	if cut == len(cur) {
		return nil
	}
	tail := make([]Segment, len(cur)-cut)
	copy(tail, cur[cut:])
	return tail
}
