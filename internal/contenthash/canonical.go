package contenthash

import (
	"regexp"
	"strings"
)

var (
	horizontalWhitespaceRe = regexp.MustCompile(`(?m)[\t\x0b\x0c\r ]+`)
	blankLinesRe           = regexp.MustCompile(`\n{3,}`)
)

// Canonicalize normalizes a parsed document's text into the deterministic
// form hashed and chunked downstream: CRLF/CR collapse to LF, runs of
// horizontal whitespace collapse to one space, runs of two or more blank
// lines collapse to a single blank line, and leading/trailing whitespace is
// trimmed.
// Two parses of equivalent content must canonicalize to the same string so
// content_hash stays stable across re-ingestion.
func Canonicalize(text string) string {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalWhitespaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
