package search

import (
	"regexp"
	"strings"
)

var (
	acronymRe      = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	quotedPhraseRe = regexp.MustCompile(`"[^"]+"`)
)

// resolveStrategy applies the auto-selection heuristics: quoted phrases or
// acronyms signal an exact-term lookup, so BM25 is enabled alongside vector
// search via hybrid; long natural-language queries also benefit from
// combining both signals; a short unadorned query defaults to vector
// similarity alone.
func resolveStrategy(query string, requested Strategy) Strategy {
	if requested != "" && requested != StrategyAuto {
		return requested
	}
	if quotedPhraseRe.MatchString(query) || acronymRe.MatchString(query) {
		return StrategyHybrid
	}
	words := strings.Fields(query)
	if len(words) >= 12 {
		return StrategyHybrid
	}
	return StrategyVector
}

// shouldRerank applies the rerank-if-k-is-small heuristic when the caller
// hasn't made an explicit choice and reranking is enabled in config.
func shouldRerank(k int, rerankEnabled bool, explicit *bool) bool {
	if explicit != nil {
		return *explicit && rerankEnabled
	}
	return rerankEnabled && k <= 20
}
