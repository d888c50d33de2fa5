// Package chunker splits canonical document text into retrievable,
// contiguously-indexed chunks: hierarchical markdown splitting down to H3,
// a semantic fallback chain for oversized leaves, and a timestamp-aware
// variant for transcribed audio segments.
package chunker

import (
	"regexp"
	"strings"
)

// Chunk is one emitted fragment, still missing its document_id and
// persisted id.
type Chunk struct {
	Index          int
	Text           string
	Headers        string
	StartTimestamp *float64
	EndTimestamp   *float64
}

// Options bounds chunk size and overlap. A zero or negative MaxChars is
// replaced by the package default of 1000 chars; a negative Overlap is
// treated as 0 (no overlap), and an Overlap at or above MaxChars is reduced
// to MaxChars/5.
type Options struct {
	MaxChars int
	Overlap  int
}

func (o Options) normalize() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = 1000
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.MaxChars {
		o.Overlap = o.MaxChars / 5
	}
	return o
}

var headingRe = [3]*regexp.Regexp{
	regexp.MustCompile(`(?m)^# (.+)$`),
	regexp.MustCompile(`(?m)^## (.+)$`),
	regexp.MustCompile(`(?m)^### (.+)$`),
}

// Split implements the hierarchical-then-semantic strategy of §4.5: split
// by H1, recurse into oversized sections by H2 then H3, and apply the
// semantic fallback chain to any leaf still over MaxChars.
func Split(text string, opt Options) []Chunk {
	opt = opt.normalize()
	raw := splitSection(text, 0, "", opt)
	out := make([]Chunk, len(raw))
	for i, r := range raw {
		r := r
		out[i] = Chunk{Index: i, Text: r.text, Headers: r.headers}
	}
	return out
}

type rawChunk struct {
	headers string
	text    string
}

// splitSection recurses through heading levels 0 (H1) through 2 (H3),
// falling through to the semantic chain once no more heading levels remain
// or a section at the deepest level is still oversized.
func splitSection(text string, level int, headerPath string, opt Options) []rawChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if level >= len(headingRe) {
		return leafChunks(text, headerPath, opt)
	}
	sections := splitByHeading(text, headingRe[level])
	if len(sections) == 1 && sections[0].title == "" {
		// No heading found at this level; try the next one directly on the
		// same text rather than emitting a spurious extra section.
		return splitSection(text, level+1, headerPath, opt)
	}
	var out []rawChunk
	for _, sec := range sections {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			continue
		}
		path := headerPath
		if sec.title != "" {
			if path != "" {
				path = path + " > " + sec.title
			} else {
				path = sec.title
			}
		}
		if len(body) <= opt.MaxChars {
			out = append(out, rawChunk{headers: path, text: body})
			continue
		}
		out = append(out, splitSection(body, level+1, path, opt)...)
	}
	return out
}

func leafChunks(text string, headers string, opt Options) []rawChunk {
	pieces := semanticSplit(text, opt)
	out := make([]rawChunk, len(pieces))
	for i, p := range pieces {
		out[i] = rawChunk{headers: headers, text: p}
	}
	return out
}

type headingSection struct {
	title string
	body  string
}

// splitByHeading splits text into sections at each line matched by re,
// each section running up to the next match (or end of text). Content
// before the first match (if any) is returned as a title-less section.
func splitByHeading(text string, re *regexp.Regexp) []headingSection {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []headingSection{{title: "", body: text}}
	}
	var out []headingSection
	if locs[0][0] > 0 {
		preamble := text[:locs[0][0]]
		if strings.TrimSpace(preamble) != "" {
			out = append(out, headingSection{title: "", body: preamble})
		}
	}
	for i, loc := range locs {
		title := text[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		out = append(out, headingSection{title: strings.TrimSpace(title), body: text[bodyStart:bodyEnd]})
	}
	return out
}
