package hypothesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/UXPilot/internal/investigation"
	"github.com/TobiSchelling/UXPilot/internal/llm"
)

type mockProvider struct {
	response string
	err      error
	lastUser string
}

func (m *mockProvider) Complete(_ context.Context, _ string, messages []llm.Message, _ string) (string, error) {
	if len(messages) > 0 {
		m.lastUser = messages[len(messages)-1].Content
	}
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

var testIssues = []investigation.VerifiedIssue{
	{ID: "UX-001", URL: "https://example.com/checkout", Type: investigation.TypeDeadClick, Count: 6},
}

func TestRunParsesInvestigations(t *testing.T) {
	resp := "My analysis follows.\n```json\n" +
		`[{"issueId": "UX-001", "knownFacts": ["6 dead clicks"], "unknownFactors": ["element unknown"], "possibleCauses": [{"id": "CAUSE-001", "probability": "HIGH", "title": "No handler", "description": "Hover style without onClick.", "filesLikelyInvolved": ["src/pages/checkout.tsx"]}], "relevantFiles": []}]` +
		"\n```"
	p := &mockProvider{response: resp}
	inv := NewInvestigator(p)

	got, err := inv.Run(context.Background(), testIssues, "## repo context", "### files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].IssueID != "UX-001" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].PossibleCauses[0].Probability != investigation.ProbabilityHigh {
		t.Errorf("unexpected cause: %+v", got[0].PossibleCauses[0])
	}
	if !strings.Contains(p.lastUser, "## Repository Structure") || !strings.Contains(p.lastUser, "## repo context") {
		t.Error("repository context missing from request")
	}
}

func TestRunMalformedResponseDegradesToEmpty(t *testing.T) {
	inv := NewInvestigator(&mockProvider{response: "```json\n{\"broken\":\n```"})
	got, err := inv.Run(context.Background(), testIssues, "", "")
	if err != nil {
		t.Fatalf("malformed output must not fail the stage: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %+v", got)
	}
}

func TestRunPropagatesProviderError(t *testing.T) {
	wantErr := errors.New("retry budget gone")
	inv := NewInvestigator(&mockProvider{err: wantErr})
	_, err := inv.Run(context.Background(), testIssues, "", "")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected provider error to propagate, got %v", err)
	}
}

func TestRunBoundsRouteFiles(t *testing.T) {
	p := &mockProvider{response: "```json\n[]\n```"}
	inv := NewInvestigator(p)

	huge := strings.Repeat("a", routeFilesBudget+50000)
	if _, err := inv.Run(context.Background(), testIssues, "ctx", huge); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.lastUser) > routeFilesBudget+10000 {
		t.Errorf("route files not bounded: request is %d chars", len(p.lastUser))
	}
}
