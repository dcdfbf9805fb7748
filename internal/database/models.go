package database

// Run holds the stored outcome of one pipeline run.
type Run struct {
	ID              int64
	RunDate         string
	ProjectID       string
	TotalSessions   int
	TotalDeadClicks int
	TotalRageClicks int
	TotalPages      int
	IssueCount      int
	APICallsUsed    int
	LLMCalls        int
	InputTokens     int
	OutputTokens    int
	EstimatedCost   float64
	DurationSeconds float64
	ReportPath      *string
	ReportJSON      string
	CreatedAt       *string
}

// RunIssue is one verified issue row attached to a run.
type RunIssue struct {
	ID               int64
	RunID            int64
	IssueID          string
	URL              string
	PageName         *string
	IssueType        string
	Metric           *string
	Count            int
	SessionsAffected int
	PercentAffected  float64
	Priority         string
	PromptText       *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalRuns    int
	TotalIssues  int
	P0Issues     int
	DistinctURLs int
	TotalCost    float64
}
