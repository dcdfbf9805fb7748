package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/UXPilot/internal/clarity"
	"github.com/TobiSchelling/UXPilot/internal/config"
	"github.com/TobiSchelling/UXPilot/internal/database"
	"github.com/TobiSchelling/UXPilot/internal/detect"
	"github.com/TobiSchelling/UXPilot/internal/hypothesis"
	"github.com/TobiSchelling/UXPilot/internal/investigation"
	"github.com/TobiSchelling/UXPilot/internal/llm"
	"github.com/TobiSchelling/UXPilot/internal/notify"
	"github.com/TobiSchelling/UXPilot/internal/promptgen"
	"github.com/TobiSchelling/UXPilot/internal/report"
	"github.com/TobiSchelling/UXPilot/internal/repo"
)

// Version is the pipeline version recorded in report metadata.
const Version = "0.1.0"

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunDate    string
	ReportPath string
	Report     *investigation.Report
	Steps      []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates one investigation run: fetch analytics, build repo
// context, run the three analysis stages, assemble and persist the report.
type Pipeline struct {
	cfg       *config.Config
	db        *database.DB
	provider  llm.Provider
	ledger    *llm.UsageLedger
	analytics *clarity.Client
	notifier  *notify.SlackNotifier
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	ledger := llm.NewUsageLedger()
	gen := cfg.Generation
	provider := llm.NewAnthropicProvider(gen.Model, gen.APIKeyEnv, gen.MaxTokens, ledger)

	ana := cfg.Analytics
	analytics := clarity.NewClient(ana.APIKeyEnv, ana.NumDays, ana.MaxCallsPerDay)

	var notifier *notify.SlackNotifier
	if cfg.Notifications.Slack.Enabled {
		notifier = notify.NewSlack(cfg.Notifications.Slack.WebhookURLEnv, ana.MaxCallsPerDay)
	}

	return &Pipeline{
		cfg:       cfg,
		db:        db,
		provider:  provider,
		ledger:    ledger,
		analytics: analytics,
		notifier:  notifier,
	}
}

// Run executes the full pipeline for the given run date (YYYY-MM-DD).
func (p *Pipeline) Run(ctx context.Context, runDate string) *Result {
	started := time.Now()
	r := &Result{RunDate: runDate}

	// Step 1: analytics data, from cache when today's snapshot exists.
	dataset, step := p.runData(ctx, runDate)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: repository context.
	repoContext, routeFiles, step := p.runContext()
	r.Steps = append(r.Steps, step)

	// Step 3: fact extraction.
	log.Println("Step 3/6: Extracting verified issues...")
	detector := detect.NewDetector(p.provider, p.cfg.Analytics.ProjectID)
	detected, err := detector.Run(ctx, dataset)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Detect", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Detect",
		Summary: fmt.Sprintf("Found %d verified issues", len(detected.Issues)),
	})

	var investigations []investigation.InvestigationData
	var prompts []investigation.InvestigationPrompt

	if len(detected.Issues) > 0 {
		// Step 4: hypothesis generation.
		log.Println("Step 4/6: Generating hypotheses...")
		investigator := hypothesis.NewInvestigator(p.provider)
		investigations, err = investigator.Run(ctx, detected.Issues, repoContext, routeFiles)
		if err != nil {
			r.Steps = append(r.Steps, StepResult{Name: "Investigate", Err: err})
			return r
		}
		r.Steps = append(r.Steps, StepResult{
			Name:    "Investigate",
			Summary: fmt.Sprintf("Investigated %d issues", len(investigations)),
		})

		// Step 5: prompt generation.
		log.Println("Step 5/6: Generating investigation prompts...")
		generator := promptgen.NewGenerator(p.provider)
		prompts, err = generator.Run(ctx, detected.Issues, investigations)
		if err != nil {
			r.Steps = append(r.Steps, StepResult{Name: "Prompts", Err: err})
			return r
		}
		r.Steps = append(r.Steps, StepResult{
			Name:    "Prompts",
			Summary: fmt.Sprintf("Generated %d prompts", len(prompts)),
		})
	} else {
		log.Println("No verified issues; skipping hypothesis and prompt stages")
		r.Steps = append(r.Steps,
			StepResult{Name: "Investigate", Summary: "Skipped (no issues)"},
			StepResult{Name: "Prompts", Summary: "Skipped (no issues)"})
	}

	// Step 6: assemble, persist, notify.
	log.Println("Step 6/6: Assembling report...")
	step = p.runAssemble(ctx, r, runDate, dataset, detected, investigations, prompts, started)
	r.Steps = append(r.Steps, step)

	return r
}

// runData returns today's dataset, preferring the on-disk cache. A fresh
// fetch that fails falls back to the newest cached snapshot of any date.
func (p *Pipeline) runData(ctx context.Context, runDate string) (*clarity.Dataset, StepResult) {
	log.Println("Step 1/6: Loading analytics data...")
	dataDir := p.cfg.GetDataDir()

	cached, err := clarity.LoadCached(dataDir, runDate)
	if err != nil {
		log.Printf("Warning: unreadable cache for %s: %v", runDate, err)
	}
	if cached != nil {
		return cached, StepResult{
			Name:    "Data",
			Summary: fmt.Sprintf("Loaded cached data for %s (0 API calls)", runDate),
		}
	}

	var dataset *clarity.Dataset
	err = fmt.Errorf("analytics token not configured")
	if p.analytics.IsConfigured() {
		dataset, err = p.analytics.FetchAll(ctx)
	}
	if err == nil {
		if saveErr := clarity.SaveCached(dataDir, runDate, dataset); saveErr != nil {
			log.Printf("Warning: could not cache analytics data: %v", saveErr)
		}
		return dataset, StepResult{
			Name:    "Data",
			Summary: fmt.Sprintf("Fetched fresh data (%d API calls, %d remaining)", dataset.APICallsUsed, p.analytics.Remaining()),
		}
	}

	log.Printf("Analytics fetch failed: %v", err)
	fallback, date, fbErr := clarity.LoadLatestCached(dataDir)
	if fbErr != nil || fallback == nil {
		return nil, StepResult{Name: "Data", Err: fmt.Errorf("no analytics data available: %w", err)}
	}
	return fallback, StepResult{
		Name:    "Data",
		Summary: fmt.Sprintf("Fetch failed; using cached data from %s", date),
	}
}

func (p *Pipeline) runContext() (repoContext, routeFiles string, step StepResult) {
	log.Println("Step 2/6: Building repository context...")
	slug := p.cfg.Target.Repo
	if slug == "" {
		return repo.MissingContext(""), "", StepResult{Name: "Context", Summary: "No target repo configured"}
	}

	cloneDir := p.cfg.GetCloneDir()
	if !repo.EnsureCloned(slug, cloneDir) {
		return repo.MissingContext(slug), "", StepResult{Name: "Context", Summary: "Repo unavailable; investigating without source"}
	}

	repoContext = repo.BuildContext(cloneDir, slug)
	routeFiles = repo.RouteFilesContent(cloneDir)
	return repoContext, routeFiles, StepResult{
		Name:    "Context",
		Summary: fmt.Sprintf("Built context from %s", slug),
	}
}

func (p *Pipeline) runAssemble(ctx context.Context, r *Result, runDate string, dataset *clarity.Dataset, detected *detect.Result, investigations []investigation.InvestigationData, prompts []investigation.InvestigationPrompt, started time.Time) StepResult {
	gen := p.cfg.Generation
	in, out := p.ledger.Totals()
	meta := investigation.Metadata{
		RunDate:          runDate,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		DataRange:        fmt.Sprintf("last %d day(s)", p.cfg.Analytics.NumDays),
		TargetRepo:       p.cfg.Target.Repo,
		PipelineVersion:  Version,
		ClarityProjectID: p.cfg.Analytics.ProjectID,
		ClarityAPICalls:  dataset.APICallsUsed,
		ClaudeAPICalls:   p.ledger.Calls(),
		InputTokens:      in,
		OutputTokens:     out,
		EstimatedCost:    p.ledger.EstimateCost(gen.InputCostPerMTok, gen.OutputCostPerMTok),
		DurationMs:       time.Since(started).Milliseconds(),
	}

	rep := investigation.Assemble(detected.Issues, investigations, prompts, meta, detected.Raw)
	r.Report = rep

	path, err := report.Write(p.cfg.GetDataDir(), rep)
	if err != nil {
		return StepResult{Name: "Report", Err: fmt.Errorf("writing report: %w", err)}
	}
	r.ReportPath = path

	if err := p.recordRun(rep, path); err != nil {
		log.Printf("Warning: could not record run in database: %v", err)
	}

	if p.notifier != nil {
		if err := p.notifier.SendRunSummary(ctx, rep, path); err != nil {
			log.Printf("Warning: slack notification failed: %v", err)
		}
	}

	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report written to %s (%d issues, est. $%.2f)", path, len(rep.Issues), meta.EstimatedCost),
	}
}

func (p *Pipeline) recordRun(rep *investigation.Report, reportPath string) error {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	runID, err := p.db.InsertRun(&database.Run{
		RunDate:         rep.Metadata.RunDate,
		ProjectID:       rep.Metadata.ClarityProjectID,
		TotalSessions:   rep.Summary.TotalSessions,
		TotalDeadClicks: rep.Summary.TotalDeadClicks,
		TotalRageClicks: rep.Summary.TotalRageClicks,
		TotalPages:      rep.Summary.TotalPages,
		IssueCount:      len(rep.Issues),
		APICallsUsed:    rep.Metadata.ClarityAPICalls,
		LLMCalls:        rep.Metadata.ClaudeAPICalls,
		InputTokens:     rep.Metadata.InputTokens,
		OutputTokens:    rep.Metadata.OutputTokens,
		EstimatedCost:   rep.Metadata.EstimatedCost,
		DurationSeconds: float64(rep.Metadata.DurationMs) / 1000,
		ReportPath:      &reportPath,
		ReportJSON:      string(reportJSON),
	})
	if err != nil {
		return err
	}

	issues := make([]database.RunIssue, 0, len(rep.Issues))
	for _, entry := range rep.Issues {
		v := entry.Verified
		pageName, metric := v.PageNameInferred, v.Metric
		promptText := entry.Prompt.PromptText
		issues = append(issues, database.RunIssue{
			IssueID:          v.ID,
			URL:              v.URL,
			PageName:         &pageName,
			IssueType:        string(v.Type),
			Metric:           &metric,
			Count:            v.Count,
			SessionsAffected: v.SessionsAffected,
			PercentAffected:  v.PercentAffected,
			Priority:         string(v.Priority),
			PromptText:       &promptText,
		})
	}
	return p.db.InsertRunIssues(runID, issues)
}
