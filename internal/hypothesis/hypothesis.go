// Package hypothesis runs the hypothesis-generation stage: given verified
// issues and repository context, it produces possible causes with
// probability tiers, never conclusions.
package hypothesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/TobiSchelling/UXPilot/internal/investigation"
	"github.com/TobiSchelling/UXPilot/internal/llm"
)

// routeFilesBudget bounds the concatenated route-file block in one request.
const routeFilesBudget = 80000

const investigatorPrompt = `You are a Code Investigator — an expert at analyzing frontend codebases to generate hypotheses about UX issues, NOT conclusions.

## Your Mission
Given a list of verified UX issues (with URLs and metrics), analyze the source code and generate POSSIBLE causes with probability ratings. Do NOT propose fixes.

## Input
1. A JSON array of VerifiedIssue objects.
2. Repository context (package.json, file tree, route files).

## Your Process
1. Detect the framework from package.json (Next.js, React, Vue, Angular, other) and focus on its routing directories.
2. For each issue URL, find the rendering component in the provided route files.
3. Analyze interactivity: hover effects (hover:shadow, hover:bg-, cursor-pointer), onClick handlers, elements that LOOK clickable but have no handler, loading and disabled states.
4. Generate hypotheses with probability:
   - HIGH: the code clearly shows the problem pattern (hover/cursor CSS with no handler, empty handler, link wrapping non-interactive content).
   - MEDIUM: suspicious but context-dependent (hover-styled card where intended clickability is unclear, conditional rendering that might drop the handler).
   - LOW: plausible but speculative (hydration timing, browser-specific behavior, too few sessions to rule out noise).
5. For EVERY issue, document the standard unknown factors: exact element clicked, click coordinates, page load state at click time, device for that specific click, and user intent.

## Output Format
Output a JSON code block with the investigation data array:

` + "```json" + `
[
  {
    "issueId": "UX-001",
    "knownFacts": ["6 dead clicks detected on /documents", "Cards have hover:shadow-md effect"],
    "unknownFactors": ["Exact element that was clicked (Clarity doesn't report this)"],
    "possibleCauses": [
      {
        "id": "CAUSE-001",
        "probability": "MEDIUM",
        "title": "Card looks clickable but only the title is",
        "description": "The card container has hover styling while the onClick lives on the inner link.",
        "filesLikelyInvolved": ["src/pages/documents.tsx"]
      }
    ],
    "relevantFiles": [
      {"path": "src/pages/documents.tsx", "reason": "Renders the documents list", "searchTerms": ["onClick", "hover:"]}
    ]
  }
]
` + "```" + `

One entry per issueId. Use the exact issue ids you were given.`

// Investigator generates investigation data for verified issues.
type Investigator struct {
	provider llm.Provider
}

// NewInvestigator creates the hypothesis-generation stage.
func NewInvestigator(provider llm.Provider) *Investigator {
	return &Investigator{provider: provider}
}

// Run sends the issues plus repository context through the investigator
// prompt. Parsing failures degrade to an empty array.
func (i *Investigator) Run(ctx context.Context, issues []investigation.VerifiedIssue, repoContext, routeFiles string) ([]investigation.InvestigationData, error) {
	log.Println("--- Stage 2: Code Investigator (Hypotheses) ---")

	issuesJSON, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing issues: %w", err)
	}
	if len(routeFiles) > routeFilesBudget {
		routeFiles = routeFiles[:routeFilesBudget]
	}

	raw, err := i.provider.Complete(ctx, investigatorPrompt, []llm.Message{{
		Role: "user",
		Content: fmt.Sprintf("## Verified UX Issues\n\n```json\n%s\n```\n\n## Repository Structure\n\n%s\n\n## Route/Page Source Files\n\n%s",
			issuesJSON, repoContext, routeFiles),
	}}, "Code Investigator")
	if err != nil {
		return nil, err
	}

	investigations := llm.ExtractJSON(raw, []investigation.InvestigationData{})
	log.Printf("  [Code Investigator] Generated %d investigation entries", len(investigations))
	return investigations, nil
}
