package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testProvider(t *testing.T, handler http.HandlerFunc) (*AnthropicProvider, *UsageLedger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ledger := NewUsageLedger()
	p := NewAnthropicProvider("test-model", "UXPILOT_TEST_KEY_UNSET", 1024, ledger)
	p.APIKey = "test-key"
	p.BaseURL = srv.URL
	p.retryFloor = time.Millisecond
	return p, ledger
}

func successBody(text string, in, out int) []byte {
	b, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"usage":   map[string]int{"input_tokens": in, "output_tokens": out},
	})
	return b
}

func TestCompleteSuccessRecordsUsage(t *testing.T) {
	p, ledger := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing version header")
		}
		w.Write(successBody("hello there", 120, 45))
	})

	text, err := p.Complete(context.Background(), "system", []Message{{Role: "user", Content: "hi"}}, "Stage Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Errorf("expected 'hello there', got %q", text)
	}
	if ledger.Calls() != 1 {
		t.Errorf("expected 1 recorded call, got %d", ledger.Calls())
	}
	in, out := ledger.Totals()
	if in != 120 || out != 45 {
		t.Errorf("expected 120/45 tokens, got %d/%d", in, out)
	}
}

func TestCompleteRetriesOnRateLimitThenSucceeds(t *testing.T) {
	var requests int
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(successBody("fourth time lucky", 10, 5))
	})

	text, err := p.Complete(context.Background(), "sys", nil, "Retry Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "fourth time lucky" {
		t.Errorf("expected 4th response body, got %q", text)
	}
	if requests != 4 {
		t.Errorf("expected exactly 4 requests (3 retries), got %d", requests)
	}
}

func TestCompleteRetryExhausted(t *testing.T) {
	var requests int
	p, ledger := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Complete(context.Background(), "sys", nil, "Exhaust Test")
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected 3 attempts reported, got %d", exhausted.Attempts)
	}
	if requests != 4 {
		t.Errorf("expected 4 requests before giving up, got %d", requests)
	}
	if ledger.Calls() != 0 {
		t.Errorf("failed calls must not be recorded, got %d", ledger.Calls())
	}
}

func TestCompleteUpstreamErrorNotRetried(t *testing.T) {
	var requests int
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := p.Complete(context.Background(), "sys", nil, "Error Test")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", upstream.Status)
	}
	if requests != 1 {
		t.Errorf("non-429 failures must not retry, got %d requests", requests)
	}
}

func TestRetryWaitUsesHeaderAboveFloor(t *testing.T) {
	if got := retryWait("90", 60*time.Second); got != 90*time.Second {
		t.Errorf("expected 90s, got %s", got)
	}
	if got := retryWait("5", 60*time.Second); got != 60*time.Second {
		t.Errorf("expected the 60s floor, got %s", got)
	}
	if got := retryWait("", 60*time.Second); got != 60*time.Second {
		t.Errorf("expected floor for missing header, got %s", got)
	}
	if got := retryWait("bogus", 60*time.Second); got != 60*time.Second {
		t.Errorf("expected floor for unparsable header, got %s", got)
	}
}

func TestUsageLedgerCost(t *testing.T) {
	ledger := NewUsageLedger()
	ledger.Record("a", 1_000_000, 0)
	ledger.Record("b", 0, 1_000_000)

	cost := ledger.EstimateCost(3, 15)
	if cost != 18 {
		t.Errorf("expected $18, got %v", cost)
	}
	if ledger.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", ledger.Calls())
	}
}
