// Package promptgen runs the final stage: it turns verified issues and
// their hypotheses into self-contained investigation prompts a developer
// can paste into any AI assistant.
package promptgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/TobiSchelling/UXPilot/internal/investigation"
	"github.com/TobiSchelling/UXPilot/internal/llm"
)

const generatorPrompt = `You are a Prompt Generator — an expert at creating clear, actionable investigation prompts for developers.

## Your Mission
Generate self-contained investigation prompts that a developer can copy-paste into any AI assistant to investigate a UX issue. The prompt must carry everything needed: the reader has no access to this conversation.

## Input
1. A JSON array of VerifiedIssue objects (metrics from Clarity).
2. A JSON array of InvestigationData objects (hypotheses from the Code Investigator).

## Prompt Structure
For each issue, the promptText must contain, in order:
1. A one-line instruction naming the issue type, page name, and URL.
2. CONTEXT: event count, total and affected sessions with percentage, assigned priority.
3. WHAT WE KNOW: the verified facts from the investigation data.
4. WHAT WE DON'T KNOW: the Clarity API limitations from the investigation data.
5. POSSIBLE CAUSES TO INVESTIGATE: each hypothesis with its probability, ordered HIGH → MEDIUM → LOW.
6. INVESTIGATION TASKS: find the rendering component (list the likely files), audit each visual element for hover effects vs. handlers, then 2-3 specific checks derived from the hypotheses, then edge cases (clicks during load, loading states, mobile vs. desktop).
7. FINAL DECISION: ask the reader to classify the issue as REAL BUG (provide the fix), FALSE POSITIVE (explain why), UX IMPROVEMENT (suggest the optional change), or NEEDS MORE DATA (name what's missing and point at Clarity session recordings).

## Output Format
Output a JSON code block with the investigation prompts array:

` + "```json" + `
[
  {
    "issueId": "UX-001",
    "promptText": "Investigate the dead clicks on the Documents List page...",
    "quickContext": {
      "filesToCheck": ["src/pages/documents.tsx"],
      "searchTerms": ["onClick", "hover:shadow"]
    }
  }
]
` + "```" + `

One entry per issueId. Use the exact issue ids you were given.`

// Generator produces investigation prompts from the prior stage outputs.
type Generator struct {
	provider llm.Provider
}

// NewGenerator creates the prompt-generation stage.
func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider}
}

// Run sends both prior stage outputs through the generator prompt.
// Parsing failures degrade to an empty array.
func (g *Generator) Run(ctx context.Context, issues []investigation.VerifiedIssue, investigations []investigation.InvestigationData) ([]investigation.InvestigationPrompt, error) {
	log.Println("--- Stage 3: Prompt Generator (Investigation Prompts) ---")

	issuesJSON, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing issues: %w", err)
	}
	invJSON, err := json.MarshalIndent(investigations, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing investigations: %w", err)
	}

	raw, err := g.provider.Complete(ctx, generatorPrompt, []llm.Message{{
		Role: "user",
		Content: fmt.Sprintf("## Verified Issues\n\n```json\n%s\n```\n\n## Investigation Data\n\n```json\n%s\n```",
			issuesJSON, invJSON),
	}}, "Prompt Generator")
	if err != nil {
		return nil, err
	}

	prompts := llm.ExtractJSON(raw, []investigation.InvestigationPrompt{})
	log.Printf("  [Prompt Generator] Generated %d investigation prompts", len(prompts))
	return prompts, nil
}
