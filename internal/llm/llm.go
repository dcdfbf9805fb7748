package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.anthropic.com"

// Message is one turn of a conversation sent to the generation API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for text-generation backends.
type Provider interface {
	Complete(ctx context.Context, system string, messages []Message, label string) (string, error)
	IsConfigured() bool
}

// RetryExhaustedError signals that a call kept hitting rate limits past the
// retry ceiling. Fatal for the run.
type RetryExhaustedError struct {
	Label    string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("[%s] failed after %d retries due to rate limiting", e.Label, e.Attempts)
}

// UpstreamError is any non-retryable non-2xx response from the generation API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation API error (%d): %s", e.Status, e.Body)
}

// AnthropicProvider calls the Anthropic Messages API with single-turn
// requests, retrying rate-limit responses and recording token usage.
type AnthropicProvider struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int

	maxRetries int
	retryFloor time.Duration
	ledger     *UsageLedger
	client     *http.Client
}

// NewAnthropicProvider creates a provider reading its key from the given
// environment variable. The ledger accumulates usage across all calls made
// through this provider.
func NewAnthropicProvider(model, apiKeyEnv string, maxTokens int, ledger *UsageLedger) *AnthropicProvider {
	return &AnthropicProvider{
		Model:      model,
		APIKey:     os.Getenv(apiKeyEnv),
		BaseURL:    defaultBaseURL,
		MaxTokens:  maxTokens,
		maxRetries: 3,
		retryFloor: 60 * time.Second,
		ledger:     ledger,
		client:     &http.Client{Timeout: 300 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (p *AnthropicProvider) IsConfigured() bool {
	return p.APIKey != ""
}

// Complete sends one request and returns the generated text. On 429 it waits
// for the server's Retry-After hint (floored at one minute) and retries up
// to the ceiling; any other failure status is returned immediately.
func (p *AnthropicProvider) Complete(ctx context.Context, system string, messages []Message, label string) (string, error) {
	log.Printf("  [%s] Calling generation API...", label)
	start := time.Now()

	body := map[string]any{
		"model":      p.Model,
		"max_tokens": p.MaxTokens,
		"system":     system,
		"messages":   messages,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+"/v1/messages", bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.APIKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := p.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("generation API error: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == p.maxRetries {
				break
			}
			wait := retryWait(resp.Header.Get("Retry-After"), p.retryFloor)
			log.Printf("  [%s] Rate limited. Waiting %s before retry %d/%d...", label, wait, attempt+1, p.maxRetries)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return "", &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
		}

		var result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			Usage struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decoding response: %w", err)
		}

		var parts []string
		for _, block := range result.Content {
			if block.Type == "text" {
				parts = append(parts, block.Text)
			}
		}
		text := strings.Join(parts, "\n")

		if p.ledger != nil {
			p.ledger.Record(label, result.Usage.InputTokens, result.Usage.OutputTokens)
		}

		log.Printf("  [%s] Done in %.1fs (%d in / %d out tokens)",
			label, time.Since(start).Seconds(), result.Usage.InputTokens, result.Usage.OutputTokens)
		return text, nil
	}

	return "", &RetryExhaustedError{Label: label, Attempts: p.maxRetries}
}

// retryWait parses a Retry-After header value, enforcing the floor.
func retryWait(header string, floor time.Duration) time.Duration {
	wait := floor
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil {
			if d := time.Duration(secs) * time.Second; d > wait {
				wait = d
			}
		}
	}
	return wait
}
