package llm

import "sync"

// UsageLedger accumulates token usage across all generation calls in a run.
// It is process-scoped state passed in at construction time, so independent
// pipelines can carry independent ledgers.
type UsageLedger struct {
	mu      sync.Mutex
	entries []usageEntry
	calls   int
}

type usageEntry struct {
	label        string
	inputTokens  int
	outputTokens int
}

// NewUsageLedger creates an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{}
}

// Record adds one call's token counts under the given label.
func (l *UsageLedger) Record(label string, inputTokens, outputTokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, usageEntry{label: label, inputTokens: inputTokens, outputTokens: outputTokens})
	l.calls++
}

// Calls returns the number of recorded generation calls.
func (l *UsageLedger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// Totals returns the summed input and output token counts.
func (l *UsageLedger) Totals() (input, output int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		input += e.inputTokens
		output += e.outputTokens
	}
	return input, output
}

// EstimateCost derives the run cost in dollars from the recorded totals
// using per-million-token rates. Pure with respect to the recorded state.
func (l *UsageLedger) EstimateCost(inputPerMTok, outputPerMTok float64) float64 {
	input, output := l.Totals()
	return (float64(input)*inputPerMTok + float64(output)*outputPerMTok) / 1_000_000
}
