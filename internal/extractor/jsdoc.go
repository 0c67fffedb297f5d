package extractor

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"jsonnetdoc/internal/filter"
)

// JSDocExtractor reads /** */ comments using the JavaScript grammar. Filtered
// Jsonnet is nothing but comments and newlines, which that grammar accepts.
type JSDocExtractor struct{}

func (j *JSDocExtractor) GetLanguage() *sitter.Language {
	return javascript.GetLanguage()
}

func (j *JSDocExtractor) GetQuery() string {
	return `(comment) @doc`
}

// ExtractUnit takes its bounds from filter.BlockAt rather than from the node,
// since the grammar ends a comment at "/**/" where the filter does not.
func (j *JSDocExtractor) ExtractUnit(captureName string, node *sitter.Node, source string, filepath string) *DocUnit {
	if captureName != "doc" {
		return nil
	}
	block, ok := filter.BlockAt(source, int(node.StartByte()))
	if !ok {
		return nil
	}
	content := block.Content

	startLine := int(node.StartPoint().Row + 1)
	unit := &DocUnit{
		ID:        fmt.Sprintf("%s:%d:%d", filepath, startLine, node.StartPoint().Column+1),
		Filepath:  filepath,
		StartLine: startLine,
		EndLine:   startLine + strings.Count(content, "\n"),
		Content:   content,
	}
	unit.Summary, unit.Description, unit.Tags = parseDocComment(content)
	unit.Fingerprint = BuildFingerprint(unit)
	return unit
}

// parseDocComment splits a comment into its first paragraph, the prose before
// the first tag, and its tags.
func parseDocComment(raw string) (summary, description string, tags []Tag) {
	var prose []string
	inTags := false
	for _, l := range cleanDocLines(raw) {
		if strings.HasPrefix(l, "@") {
			inTags = true
			name, text, _ := strings.Cut(l[1:], " ")
			tags = append(tags, Tag{Name: name, Text: strings.TrimSpace(text)})
			continue
		}
		if inTags {
			if l != "" {
				last := &tags[len(tags)-1]
				last.Text = strings.TrimSpace(last.Text + " " + l)
			}
			continue
		}
		prose = append(prose, l)
	}

	description = strings.TrimSpace(strings.Join(prose, "\n"))
	para, _, _ := strings.Cut(description, "\n\n")
	summary = strings.Join(strings.Fields(para), " ")
	return summary, description, tags
}

func cleanDocLines(raw string) []string {
	raw = strings.TrimPrefix(raw, filter.Opener)
	raw = strings.TrimRight(strings.TrimSuffix(raw, filter.Closer), "*")
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "*")
		cleaned = append(cleaned, strings.TrimSpace(l))
	}
	return cleaned
}
