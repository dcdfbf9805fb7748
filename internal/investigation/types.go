package investigation

// Priority is the severity tier assigned to a verified issue. P0 is most severe.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Priorities lists all tiers in descending severity order.
var Priorities = []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}

// Probability is the confidence tier attached to a hypothesis.
type Probability string

const (
	ProbabilityHigh   Probability = "HIGH"
	ProbabilityMedium Probability = "MEDIUM"
	ProbabilityLow    Probability = "LOW"
)

// IssueType is the behavioral anomaly category reported by Clarity.
type IssueType string

const (
	TypeRageClick       IssueType = "rage_click"
	TypeDeadClick       IssueType = "dead_click"
	TypeExcessiveScroll IssueType = "excessive_scroll"
	TypeQuickback       IssueType = "quickback"
	TypeScriptError     IssueType = "script_error"
	TypeErrorClick      IssueType = "error_click"
)

// VerifiedIssue is one Clarity-verified anomaly on one URL.
// Facts only; no inferred causes.
type VerifiedIssue struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	PageNameInferred string    `json:"pageNameInferred"`
	Metric           string    `json:"metric"`
	Type             IssueType `json:"type"`
	Count            int       `json:"count"`
	SessionsTotal    int       `json:"sessionsTotal"`
	SessionsAffected int       `json:"sessionsAffected"`
	PercentAffected  float64   `json:"percentAffected"`
	Priority         Priority  `json:"priority"`
}

// PossibleCause is one hypothesis for a verified issue.
type PossibleCause struct {
	ID                  string      `json:"id"`
	Probability         Probability `json:"probability"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	FilesLikelyInvolved []string    `json:"filesLikelyInvolved"`
}

// RelevantFile points at a source file worth reading for an issue.
type RelevantFile struct {
	Path        string   `json:"path"`
	Reason      string   `json:"reason"`
	SearchTerms []string `json:"searchTerms,omitempty"`
}

// InvestigationData is the hypothesis-stage output for one issue.
type InvestigationData struct {
	IssueID        string          `json:"issueId"`
	KnownFacts     []string        `json:"knownFacts"`
	UnknownFactors []string        `json:"unknownFactors"`
	PossibleCauses []PossibleCause `json:"possibleCauses"`
	RelevantFiles  []RelevantFile  `json:"relevantFiles"`
}

// QuickContext is the short orientation block attached to a prompt.
type QuickContext struct {
	FilesToCheck []string `json:"filesToCheck"`
	SearchTerms  []string `json:"searchTerms"`
}

// InvestigationPrompt is the prompt-stage output for one issue: a
// self-contained instruction bundle ready to paste into any AI assistant.
type InvestigationPrompt struct {
	IssueID      string       `json:"issueId"`
	PromptText   string       `json:"promptText"`
	QuickContext QuickContext `json:"quickContext"`
}

// IssueEntry is the correlated unit: one verified issue with its
// investigation data and prompt. Verified.ID is authoritative.
type IssueEntry struct {
	Verified      VerifiedIssue       `json:"verified"`
	Investigation InvestigationData   `json:"investigation"`
	Prompt        InvestigationPrompt `json:"prompt"`
}

// Metadata holds run-level accounting for a report.
type Metadata struct {
	RunDate          string  `json:"runDate"`
	GeneratedAt      string  `json:"generatedAt"`
	DataRange        string  `json:"dataRange"`
	TargetRepo       string  `json:"targetRepo"`
	PipelineVersion  string  `json:"pipelineVersion"`
	ClarityProjectID string  `json:"clarityProjectId"`
	ClarityAPICalls  int     `json:"clarityApiCalls"`
	ClaudeAPICalls   int     `json:"claudeApiCalls"`
	InputTokens      int     `json:"inputTokens"`
	OutputTokens     int     `json:"outputTokens"`
	EstimatedCost    float64 `json:"estimatedCost"`
	DurationMs       int64   `json:"durationMs"`
}

// Summary holds the aggregate figures shown at the top of a report.
type Summary struct {
	TotalSessions    int              `json:"totalSessions"`
	TotalDeadClicks  int              `json:"totalDeadClicks"`
	TotalRageClicks  int              `json:"totalRageClicks"`
	TotalPages       int              `json:"totalPages"`
	IssuesByPriority map[Priority]int `json:"issuesByPriority"`
}

// Report is the top-level run artifact. Created once per run, then immutable.
type Report struct {
	Metadata Metadata     `json:"metadata"`
	Summary  Summary      `json:"summary"`
	Issues   []IssueEntry `json:"issues"`
}
