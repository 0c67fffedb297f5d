package extractor

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/afero"
)

// Extractor parses filtered sources and collects their documentation comments.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given comment dialect.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "jsdoc":
		langExt = &JSDocExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// ExtractFromFile reads path from fs and extracts its documentation comments.
// The file is expected to have gone through the beforeParse hooks already.
func (e *Extractor) ExtractFromFile(fs afero.Fs, path string) ([]*DocUnit, error) {
	sourceCode, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.ExtractFromSource(path, sourceCode)
}

// ExtractFromSource parses sourceCode and returns one unit per documentation
// comment, in source order.
func (e *Extractor) ExtractFromSource(filepath string, sourceCode []byte) ([]*DocUnit, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filepath, err)
	}
	defer tree.Close()

	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	source := string(sourceCode)
	// Comments the grammar splits out of a larger unit are part of that unit.
	covered := 0
	var units []*DocUnit
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			start := int(c.Node.StartByte())
			if start < covered {
				continue
			}
			captureName := query.CaptureNameForId(c.Index)
			unit := e.langExtractor.ExtractUnit(captureName, c.Node, source, filepath)
			if unit != nil {
				unit.Language = e.langName
				units = append(units, unit)
				covered = start + len(unit.Content)
			}
		}
	}

	return units, nil
}
