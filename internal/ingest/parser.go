package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// CanonicalDoc is a parsed document's deterministic text representation,
// ready for hashing and chunking.
type CanonicalDoc struct {
	Text  string
	Title string
}

// Parser turns a file on disk into canonical text. Canonicalization must be
// deterministic: equal inputs must produce equal content hashes.
type Parser interface {
	Parse(path, fileType string) (CanonicalDoc, error)
}

// Parsers dispatches by file extension to a registered Parser, falling back
// to ErrUnsupportedFileType for anything unregistered.
type Parsers map[string]Parser

// ErrUnsupportedFileType is returned for file types with no registered parser.
type ErrUnsupportedFileType struct{ FileType string }

func (e *ErrUnsupportedFileType) Error() string {
	return fmt.Sprintf("ingest: unsupported file type %q", e.FileType)
}

// Parse dispatches to the parser registered for fileType.
func (p Parsers) Parse(path, fileType string) (CanonicalDoc, error) {
	parser, ok := p[strings.ToLower(fileType)]
	if !ok {
		return CanonicalDoc{}, &ErrUnsupportedFileType{FileType: fileType}
	}
	return parser.Parse(path, fileType)
}

// DefaultParsers returns the built-in registry: direct passthrough for
// markdown and plain text, front matter stripped. PDF/DOCX/HTML conversion
// is left to the same Parser interface so an operator can register
// additional parsers (e.g. wrapping html-to-markdown) without touching the
// ingestion pipeline.
func DefaultParsers(readFile func(string) ([]byte, error)) Parsers {
	mdtxt := &passthroughParser{readFile: readFile}
	return Parsers{
		".md":       mdtxt,
		".markdown": mdtxt,
		".txt":      mdtxt,
	}
}

var frontMatterRe = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)

type passthroughParser struct {
	readFile func(string) ([]byte, error)
}

func (p *passthroughParser) Parse(path, fileType string) (CanonicalDoc, error) {
	raw, err := p.readFile(path)
	if err != nil {
		return CanonicalDoc{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	text := frontMatterRe.ReplaceAllString(string(raw), "")
	return CanonicalDoc{Text: text, Title: titleFromContent(text, path)}, nil
}

// titleFromContent takes the first H1 heading in text, falling back to the
// file's base name.
func titleFromContent(text, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
