// Package notify posts run summaries to Slack via an incoming webhook.
// Notification failures never fail a run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/TobiSchelling/UXPilot/internal/investigation"
)

// SlackNotifier posts Block Kit messages to an incoming webhook.
// A notifier with an empty WebhookURL is disabled and sends nothing.
type SlackNotifier struct {
	WebhookURL string
	MaxCalls   int

	client *http.Client
}

// NewSlack builds a notifier from the webhook URL held in webhookEnv.
// Returns a disabled notifier when the variable is unset.
func NewSlack(webhookEnv string, maxCalls int) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: os.Getenv(webhookEnv),
		MaxCalls:   maxCalls,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *SlackNotifier) Enabled() bool {
	return n.WebhookURL != ""
}

type block struct {
	Type     string      `json:"type"`
	Text     *blockText  `json:"text,omitempty"`
	Elements []blockText `json:"elements,omitempty"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendRunSummary posts a summary of a completed run. It is a no-op when the
// notifier is disabled.
func (n *SlackNotifier) SendRunSummary(ctx context.Context, rep *investigation.Report, reportPath string) error {
	if !n.Enabled() {
		return nil
	}

	payload := map[string]any{"blocks": n.buildBlocks(rep, reportPath)}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *SlackNotifier) buildBlocks(rep *investigation.Report, reportPath string) []block {
	by := rep.Summary.IssuesByPriority
	severity := fmt.Sprintf("*%d issues*  :red_circle: %d P0  :large_orange_circle: %d P1  :large_yellow_circle: %d P2  :white_circle: %d P3",
		len(rep.Issues),
		by[investigation.PriorityP0], by[investigation.PriorityP1],
		by[investigation.PriorityP2], by[investigation.PriorityP3])

	blocks := []block{
		{Type: "header", Text: &blockText{Type: "plain_text",
			Text: fmt.Sprintf("UX Investigation %s", rep.Metadata.RunDate)}},
		{Type: "section", Text: &blockText{Type: "mrkdwn", Text: severity}},
	}

	if len(rep.Issues) > 0 {
		top := rep.Issues[0].Verified
		blocks = append(blocks, block{Type: "section", Text: &blockText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("Top issue: *%s* %s on <%s|%s> (%d occurrences, %.1f%% of sessions)",
				top.Priority, top.Type, top.URL, top.PageNameInferred, top.Count, top.PercentAffected),
		}})
	}

	if reportPath != "" {
		blocks = append(blocks, block{Type: "section", Text: &blockText{
			Type: "mrkdwn", Text: "Report: `" + reportPath + "`",
		}})
	}

	m := rep.Metadata
	blocks = append(blocks, block{Type: "context", Elements: []blockText{{
		Type: "mrkdwn",
		Text: fmt.Sprintf("Clarity API: %d/%d | Claude API: %d calls | $%.2f | %s",
			m.ClarityAPICalls, n.MaxCalls, m.ClaudeAPICalls, m.EstimatedCost,
			(time.Duration(m.DurationMs) * time.Millisecond).Round(time.Second)),
	}}})

	return blocks
}
