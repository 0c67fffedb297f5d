package extractor

import sitter "github.com/smacker/go-tree-sitter"

// DocUnit is one documentation comment as seen by the doc parser.
type DocUnit struct {
	ID          string `json:"id"`
	Filepath    string `json:"filepath"`
	Language    string `json:"language"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Content     string `json:"content"`     // raw comment, delimiters included
	Summary     string `json:"summary"`     // first paragraph
	Description string `json:"description"` // all prose before the first tag
	Tags        []Tag  `json:"tags,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Tag is an "@name text" line of a documentation comment.
type Tag struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// LanguageExtractor defines what the Extractor needs from a grammar.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	ExtractUnit(captureName string, node *sitter.Node, source string, filepath string) *DocUnit
}
