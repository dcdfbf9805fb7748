package investigation

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// totalSessionsRe matches the "Total Sessions | N" row the fact-extraction
// stage is asked to include in its dashboard text. Format drift degrades the
// figure to 0, it never fails the run.
var totalSessionsRe = regexp.MustCompile(`(?i)Total Sessions\s*\|\s*(\d[\d,]*)`)

// Assemble correlates the three stage outputs into a single report.
//
// The join is keyed on VerifiedIssue.ID and is a left join: every verified
// issue yields exactly one entry, with synthesized defaults where a later
// stage omitted the id. Investigation or prompt entries whose id matches no
// verified issue are dropped. Entry order preserves the issue order.
func Assemble(issues []VerifiedIssue, investigations []InvestigationData, prompts []InvestigationPrompt, meta Metadata, stageOneRaw string) *Report {
	invByID := make(map[string]InvestigationData, len(investigations))
	for _, inv := range investigations {
		invByID[inv.IssueID] = inv
	}
	promptByID := make(map[string]InvestigationPrompt, len(prompts))
	for _, p := range prompts {
		promptByID[p.IssueID] = p
	}

	entries := make([]IssueEntry, 0, len(issues))
	defaulted := 0
	for _, issue := range issues {
		inv, ok := invByID[issue.ID]
		if !ok {
			inv = defaultInvestigation(issue)
			defaulted++
		}
		prompt, ok := promptByID[issue.ID]
		if !ok {
			prompt = defaultPrompt(issue)
			defaulted++
		}
		entries = append(entries, IssueEntry{Verified: issue, Investigation: inv, Prompt: prompt})
	}
	if defaulted > 0 {
		log.Printf("Correlation: synthesized %d default entries for %d issues", defaulted, len(issues))
	}

	return &Report{
		Metadata: meta,
		Summary:  summarize(issues, stageOneRaw),
		Issues:   entries,
	}
}

// defaultInvestigation fills in for an issue the hypothesis stage skipped.
func defaultInvestigation(issue VerifiedIssue) InvestigationData {
	return InvestigationData{
		IssueID:        issue.ID,
		KnownFacts:     []string{fmt.Sprintf("%d %s detected on %s", issue.Count, issue.Type, issue.URL)},
		UnknownFactors: []string{"Investigation data not available for this issue"},
		PossibleCauses: []PossibleCause{},
		RelevantFiles:  []RelevantFile{},
	}
}

// defaultPrompt fills in for an issue the prompt stage skipped.
func defaultPrompt(issue VerifiedIssue) InvestigationPrompt {
	return InvestigationPrompt{
		IssueID: issue.ID,
		PromptText: fmt.Sprintf("Investigate the %s on %s.\n\nNo automated prompt was generated for this issue. Please investigate manually.",
			issue.Type, issue.URL),
		QuickContext: QuickContext{FilesToCheck: []string{}, SearchTerms: []string{}},
	}
}

func summarize(issues []VerifiedIssue, stageOneRaw string) Summary {
	byPriority := map[Priority]int{PriorityP0: 0, PriorityP1: 0, PriorityP2: 0, PriorityP3: 0}
	urls := make(map[string]struct{})
	deadClicks, rageClicks := 0, 0

	for _, issue := range issues {
		byPriority[issue.Priority]++
		urls[issue.URL] = struct{}{}
		switch issue.Type {
		case TypeDeadClick:
			deadClicks += issue.Count
		case TypeRageClick:
			rageClicks += issue.Count
		}
	}

	return Summary{
		TotalSessions:    ExtractTotalSessions(stageOneRaw),
		TotalDeadClicks:  deadClicks,
		TotalRageClicks:  rageClicks,
		TotalPages:       len(urls),
		IssuesByPriority: byPriority,
	}
}

// ExtractTotalSessions pulls the session total out of the fact-extraction
// stage's free-form dashboard text. Returns 0 when the row is absent.
func ExtractTotalSessions(text string) int {
	m := totalSessionsRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}
