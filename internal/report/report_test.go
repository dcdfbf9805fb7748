package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/UXPilot/internal/investigation"
)

func sampleReport() *investigation.Report {
	issues := []investigation.VerifiedIssue{
		{ID: "UX-001", URL: "https://example.com/checkout", PageNameInferred: "Checkout",
			Metric: "RageClickCount", Type: investigation.TypeRageClick, Count: 30,
			SessionsTotal: 100, SessionsAffected: 40, PercentAffected: 40,
			Priority: investigation.PriorityP0},
	}
	investigations := []investigation.InvestigationData{
		{IssueID: "UX-001",
			KnownFacts: []string{"30 rage clicks on the pay button"},
			PossibleCauses: []investigation.PossibleCause{
				{ID: "C1", Probability: investigation.ProbabilityHigh,
					Title: "Disabled submit", Description: "Button stays disabled after validation"},
			}},
	}
	prompts := []investigation.InvestigationPrompt{
		{IssueID: "UX-001", PromptText: "## Investigate\n\nCheck the **pay button** handler."},
	}
	meta := investigation.Metadata{
		RunDate:          "2026-09-01",
		GeneratedAt:      "2026-09-01T06:00:00Z",
		DataRange:        "last 1 day(s)",
		ClarityProjectID: "abc123",
		ClarityAPICalls:  6,
		ClaudeAPICalls:   3,
		EstimatedCost:    0.27,
	}
	return investigation.Assemble(issues, investigations, prompts, meta, "Total Sessions | 1,234")
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "ux-investigation-2026-09-01.html" {
		t.Errorf("unexpected report name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"UX-001", "Checkout", "https://example.com/checkout",
		"Disabled submit", "1234", "abc123",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
	// Prompt markdown rendered, not escaped.
	if !strings.Contains(html, "<strong>pay button</strong>") {
		t.Error("prompt markdown not rendered to HTML")
	}
}

func TestWriteReportCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")

	if _, err := Write(dir, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(Path(dir, "2026-09-01")); err != nil {
		t.Errorf("report not created: %v", err)
	}
}

func TestPath(t *testing.T) {
	got := Path("/data/reports", "2026-09-01")
	want := filepath.Join("/data/reports", "ux-investigation-2026-09-01.html")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}
