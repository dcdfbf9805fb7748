// Package report renders an assembled investigation into a standalone HTML
// file, one per run date.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/UXPilot/internal/investigation"
)

//go:embed report.html
var reportHTML string

var md = goldmark.New()

// Path returns the report file path for a run date inside dir.
func Path(dir, date string) string {
	return filepath.Join(dir, fmt.Sprintf("ux-investigation-%s.html", date))
}

// Write renders the report and writes it to dir, returning the file path.
func Write(dir string, rep *investigation.Report) (string, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}
	tmpl, err := template.New("report").Funcs(funcMap).Parse(reportHTML)
	if err != nil {
		return "", fmt.Errorf("parsing report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, rep); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := Path(dir, rep.Metadata.RunDate)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}
