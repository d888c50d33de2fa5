package chunker

import "regexp"

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`[.!?]+['"]?\s+`)
	wordRe      = regexp.MustCompile(`\s+`)
)

type splitLevel struct {
	split func(string) []string
	sep   string
}

var semanticLevels = []splitLevel{
	{split: splitOn(paragraphRe), sep: "\n\n"},
	// sentence atoms keep their trailing punctuation and whitespace, so
	// they rejoin with no added separator.
	{split: splitOnSentences, sep: ""},
	{split: splitOn(wordRe), sep: " "},
}

// semanticSplit applies the fallback chain of §4.5 to a leaf fragment that
// did not fit under a heading: paragraph, then sentence, then word
// boundaries, with character chopping only as the final resort. Overlap is
// reintroduced once atoms are boundary-aligned, never mid-word unless even
// a single word exceeds MaxChars.
func semanticSplit(text string, opt Options) []string {
	return splitAtLevel(text, opt, 0)
}

func splitAtLevel(text string, opt Options, level int) []string {
	if len(text) <= opt.MaxChars {
		return []string{text}
	}
	if level >= len(semanticLevels) {
		return packWithOverlap(splitByChars(text, opt.MaxChars), opt, "")
	}
	lvl := semanticLevels[level]
	pieces := lvl.split(text)
	if len(pieces) <= 1 {
		return splitAtLevel(text, opt, level+1)
	}
	var atoms []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if len(p) <= opt.MaxChars {
			atoms = append(atoms, p)
		} else {
			atoms = append(atoms, splitAtLevel(p, opt, level+1)...)
		}
	}
	return packWithOverlap(atoms, opt, lvl.sep)
}

func splitOn(re *regexp.Regexp) func(string) []string {
	return func(s string) []string { return re.Split(s, -1) }
}

// splitOnSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the terminator and trailing whitespace with the
// preceding sentence so atoms rejoin without an added separator.
func splitOnSentences(s string) []string {
	locs := sentenceRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		out = append(out, s[start:loc[1]])
		start = loc[1]
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func splitByChars(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 1000
	}
	r := []rune(text)
	var out []string
	for i := 0; i < len(r); i += maxChars {
		end := i + maxChars
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}

// packWithOverlap greedily packs boundary-aligned atoms into windows no
// larger than MaxChars, carrying the tail atoms of one window into the
// start of the next so consecutive chunks share roughly Overlap characters.
func packWithOverlap(atoms []string, opt Options, sep string) []string {
	if len(atoms) == 0 {
		return nil
	}
	var out []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, joinAtoms(cur, sep))
	}

	i := 0
	for i < len(atoms) {
		a := atoms[i]
		extra := len(a)
		if curLen > 0 {
			extra += len(sep)
		}
		if curLen > 0 && curLen+extra > opt.MaxChars {
			flush()
			cur = tailForOverlap(cur, opt.Overlap, sep)
			curLen = joinedLen(cur, sep)
			continue
		}
		cur = append(cur, a)
		curLen += extra
		i++
	}
	flush()
	return out
}

func joinAtoms(atoms []string, sep string) string {
	out := ""
	for i, a := range atoms {
		if i > 0 {
			out += sep
		}
		out += a
	}
	return out
}

func joinedLen(atoms []string, sep string) int {
	if len(atoms) == 0 {
		return 0
	}
	n := len(sep) * (len(atoms) - 1)
	for _, a := range atoms {
		n += len(a)
	}
	return n
}

// tailForOverlap returns the suffix of cur whose joined length does not
// exceed overlap, preserving order, so the next window starts at a prior
// atom boundary rather than mid-atom.
func tailForOverlap(cur []string, overlap int, sep string) []string {
	if overlap <= 0 || len(cur) == 0 {
		return nil
	}
	n := 0
	cut := len(cur)
	for i := len(cur) - 1; i >= 0; i-- {
		add := len(cur[i])
		if n > 0 {
			add += len(sep)
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
	tail := make([]string, len(cur)-cut)
	copy(tail, cur[cut:])
	return tail
}
