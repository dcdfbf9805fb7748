// Package detect runs the fact-extraction stage: it turns raw Clarity
// export data into verified issues, without speculating about causes.
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/TobiSchelling/UXPilot/internal/clarity"
	"github.com/TobiSchelling/UXPilot/internal/investigation"
	"github.com/TobiSchelling/UXPilot/internal/llm"
)

// datasetBudget bounds the serialized dataset sent in one request.
const datasetBudget = 100000

const detectPrompt = `You are a UX Detective — a data analyst specializing in Microsoft Clarity behavioral analytics.

## Your Mission
Extract ONLY verified facts from the Clarity data. Do NOT speculate about root causes, element names, or fixes.

## Key Clarity Data Fields
For each URL entry:
- sessionsCount: total sessions that visited this URL
- sessionsWithMetricPercentage: % of sessions that exhibited the behavior
- subTotal: count of the metric (dead clicks, rage clicks, etc.)
- Url: the page URL

## Your Process
1. Filter out preview, localhost, and tooling URLs; keep production traffic only.
2. Normalize URLs: strip query parameters, replace UUIDs and numeric ids with {id}, group metrics by normalized path.
3. Extract every URL with ANY non-zero metric: dead clicks, rage clicks, quickback clicks, excessive scroll, script errors, error clicks.
4. Assign priority:
   - P0: > 50 events OR > 50% sessions affected with multiple signals on the same URL
   - P1: > 20 events OR > 30% sessions affected
   - P2: > 5 events OR > 20% sessions affected
   - P3: rest (> 0 events)
   If the same URL has dead clicks AND rage clicks, bump its priority one level.
5. Infer a human-readable page name from the normalized path (capitalize the last segment's words).

## CRITICAL RULES
1. Do NOT speculate about what element was clicked.
2. Do NOT hypothesize about root causes.
3. Do NOT suggest fixes.
4. Every number must come directly from the data.

## Output Format
First, produce a markdown summary section:

## Executive Dashboard

| Metric | Value |
|--------|-------|
| Total Sessions | [sum from data] |
| Dead Clicks (total) | [sum of all DeadClickCount subTotals] |
| Rage Clicks (total) | [sum of all RageClickCount subTotals] |
| Quickback Clicks (total) | [sum] |
| Excessive Scroll Events | [sum] |

Then output a JSON code block with the verified issues array:

` + "```json" + `
[
  {
    "id": "UX-001",
    "url": "https://example.com/documents",
    "pageNameInferred": "Documents List",
    "metric": "DeadClickCount",
    "type": "dead_click",
    "count": 6,
    "sessionsTotal": 18,
    "sessionsAffected": 6,
    "percentAffected": 33.33,
    "priority": "P2"
  }
]
` + "```" + `

Order the array by priority (P0 first), then by count (highest first).`

// Result holds the fact-extraction stage output. Raw keeps the full model
// response so the report assembler can read the dashboard text.
type Result struct {
	Raw    string
	Issues []investigation.VerifiedIssue
}

// Detector extracts verified issues from a Clarity dataset.
type Detector struct {
	provider  llm.Provider
	projectID string
}

// NewDetector creates the fact-extraction stage.
func NewDetector(provider llm.Provider, projectID string) *Detector {
	return &Detector{provider: provider, projectID: projectID}
}

// Run sends the serialized dataset through the detective prompt and parses
// the verified issue array. Parsing failures degrade to an empty array; an
// empty result is valid but worth a warning.
func (d *Detector) Run(ctx context.Context, dataset *clarity.Dataset) (*Result, error) {
	log.Println("--- Stage 1: UX Detective (Verified Facts Only) ---")

	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing dataset: %w", err)
	}
	payload := string(data)
	if len(payload) > datasetBudget {
		payload = payload[:datasetBudget] + "\n... (truncated)"
	}

	raw, err := d.provider.Complete(ctx, detectPrompt, []llm.Message{{
		Role: "user",
		Content: fmt.Sprintf("Analyze this Microsoft Clarity data and extract verified UX issues.\n\nClarity Project ID: %s\n\n%s",
			d.projectID, payload),
	}}, "UX Detective")
	if err != nil {
		return nil, err
	}

	issues := llm.ExtractJSON(raw, []investigation.VerifiedIssue{})
	if len(issues) == 0 {
		log.Println("  Warning: no verified issues extracted; the report will be empty.")
	} else {
		log.Printf("  [UX Detective] Extracted %d verified issues", len(issues))
	}

	return &Result{Raw: raw, Issues: issues}, nil
}
