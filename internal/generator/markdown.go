package generator

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"jsonnetdoc/internal/extractor"
	"jsonnetdoc/internal/storage"
)

// MarkdownGenerator renders stored documentation comments as Markdown.
type MarkdownGenerator struct {
	fs afero.Fs
}

func NewMarkdownGenerator(fs afero.Fs) *MarkdownGenerator {
	return &MarkdownGenerator{fs: fs}
}

// GenerateDocs writes index.md, one page per documented file and
// pipeline_report.json into outputDir.
func (g *MarkdownGenerator) GenerateDocs(records []storage.FileRecord, outputDir string) (retErr error) {
	report := NewPipelineReport("generate", outputDir)
	reportPath := filepath.Join(outputDir, "pipeline_report.json")
	defer func() {
		if retErr != nil {
			report.AddSignal("generate_failed", "generator", "critical", "Documentation generation failed.", "")
		}
		if err := report.Save(g.fs, reportPath); err != nil && retErr == nil {
			retErr = fmt.Errorf("failed to write pipeline report: %w", err)
		}
	}()

	stage := report.BeginStage("init_output_dir")
	if err := g.fs.MkdirAll(outputDir, 0o755); err != nil {
		report.EndStage(stage, nil, err)
		return err
	}
	report.EndStage(stage, nil, nil)

	sorted := append([]storage.FileRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	stage = report.BeginStage("write_pages")
	pages, units := 0, 0
	for _, rec := range sorted {
		if len(rec.Units) == 0 {
			report.AddSignal("undocumented_file", "write_pages", "info", "File has no documentation comments.", rec.Path)
			continue
		}
		for _, u := range rec.Units {
			if u.Summary == "" {
				report.AddSignal("missing_summary", "write_pages", "warning",
					fmt.Sprintf("Comment at line %d has no summary.", u.StartLine), rec.Path)
			}
		}

		target := filepath.Join(outputDir, filepath.FromSlash(PagePath(rec.Path)))
		if err := g.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			report.EndStage(stage, nil, err)
			return err
		}
		if err := afero.WriteFile(g.fs, target, []byte(RenderFile(rec)), 0o644); err != nil {
			report.EndStage(stage, nil, err)
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		pages++
		units += len(rec.Units)
	}
	report.EndStage(stage, map[string]float64{
		"pages_written": float64(pages),
		"units_total":   float64(units),
	}, nil)

	stage = report.BeginStage("write_index")
	err := afero.WriteFile(g.fs, filepath.Join(outputDir, "index.md"), []byte(RenderIndex(sorted)), 0o644)
	report.EndStage(stage, nil, err)
	return err
}

// PagePath maps a source path to its page path relative to the output directory.
func PagePath(source string) string {
	clean := path.Clean(filepath.ToSlash(source))
	parts := strings.Split(strings.TrimLeft(clean, "/"), "/")
	for i, p := range parts {
		if p == ".." {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, "/") + ".md"
}

// RenderIndex lists every file with a link to its page.
func RenderIndex(records []storage.FileRecord) string {
	var sb strings.Builder
	sb.WriteString("# Jsonnet documentation\n\n")
	if len(records) == 0 {
		sb.WriteString("_No files scanned._\n")
		return sb.String()
	}
	sb.WriteString("| File | Comments |\n|---|---|\n")
	for _, rec := range records {
		name := escapeCell(rec.Path)
		if len(rec.Units) == 0 {
			fmt.Fprintf(&sb, "| %s | 0 |\n", name)
			continue
		}
		fmt.Fprintf(&sb, "| [%s](%s) | %d |\n", name, PagePath(rec.Path), len(rec.Units))
	}
	return sb.String()
}

// RenderFile renders the page for one source file.
func RenderFile(rec storage.FileRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", rec.Path)
	for _, u := range rec.Units {
		sb.WriteString("\n")
		renderUnit(&sb, u)
	}
	return sb.String()
}

func renderUnit(sb *strings.Builder, u *extractor.DocUnit) {
	title := u.Summary
	if title == "" {
		title = fmt.Sprintf("Line %d", u.StartLine)
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	if u.StartLine == u.EndLine {
		fmt.Fprintf(sb, "<a id=\"L%d\"></a>_Line %d_\n\n", u.StartLine, u.StartLine)
	} else {
		fmt.Fprintf(sb, "<a id=\"L%d\"></a>_Lines %d-%d_\n\n", u.StartLine, u.StartLine, u.EndLine)
	}

	if rest := strings.TrimSpace(strings.TrimPrefix(u.Description, firstParagraph(u.Description))); rest != "" {
		sb.WriteString(rest)
		sb.WriteString("\n\n")
	}

	if len(u.Tags) > 0 {
		sb.WriteString("| Tag | Text |\n|---|---|\n")
		for _, t := range u.Tags {
			fmt.Fprintf(sb, "| `@%s` | %s |\n", t.Name, escapeCell(t.Text))
		}
		sb.WriteString("\n")
	}
}

func firstParagraph(s string) string {
	p, _, _ := strings.Cut(s, "\n\n")
	return p
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
