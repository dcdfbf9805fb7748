package clarity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func sampleResponse() []byte {
	b, _ := json.Marshal(APIResponse{
		{MetricName: "DeadClickCount", Information: []MetricInfo{
			{"subTotal": 12, "Url": "https://example.com/checkout", "totalSessionCount": "340"},
		}},
	})
	return b
}

func testClient(t *testing.T, handler http.HandlerFunc, maxCalls int) (*Client, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("UXPILOT_TEST_TOKEN_UNSET", 1, maxCalls)
	c.Token = "test-token"
	c.BaseURL = srv.URL
	return c, &hits
}

func TestFetchDecodesPayload(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token")
		}
		if r.URL.Query().Get("numOfDays") != "1" {
			t.Errorf("expected numOfDays=1, got %q", r.URL.Query().Get("numOfDays"))
		}
		if r.URL.Query().Get("dimension1") != "URL" {
			t.Errorf("expected dimension1=URL, got %q", r.URL.Query().Get("dimension1"))
		}
		w.Write(sampleResponse())
	}, 10)

	resp, err := c.Fetch(context.Background(), Params{NumDays: 1, Dimension1: DimURL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp) != 1 || resp[0].MetricName != "DeadClickCount" {
		t.Errorf("unexpected payload: %+v", resp)
	}
	if c.CallCount() != 1 {
		t.Errorf("expected 1 call counted, got %d", c.CallCount())
	}
}

func TestFetchQuotaExceededIssuesNoRequest(t *testing.T) {
	c, hits := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(sampleResponse())
	}, 0)

	_, err := c.Fetch(context.Background(), Params{NumDays: 1, Dimension1: DimURL})
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.Max != 0 || quota.Used != 0 {
		t.Errorf("unexpected counts: %+v", quota)
	}
	if *hits != 0 {
		t.Errorf("expected zero network requests, got %d", *hits)
	}
}

func TestFetchAuthErrors(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}, 10)

		_, err := c.Fetch(context.Background(), Params{NumDays: 1})
		var auth *AuthError
		if !errors.As(err, &auth) {
			t.Fatalf("status %d: expected AuthError, got %v", status, err)
		}
		if auth.Status != status {
			t.Errorf("expected status %d, got %d", status, auth.Status)
		}
		if c.CallCount() != 0 {
			t.Errorf("failed call must not consume quota, counter=%d", c.CallCount())
		}
	}
}

func TestFetchRateLimitedNotRetried(t *testing.T) {
	c, hits := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, 10)

	_, err := c.Fetch(context.Background(), Params{NumDays: 1})
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if *hits != 1 {
		t.Errorf("429 must not be retried, got %d requests", *hits)
	}
}

func TestFetchUpstreamErrorCarriesBody(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("gateway melted"))
	}, 10)

	_, err := c.Fetch(context.Background(), Params{NumDays: 1})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusBadGateway || upstream.Body != "gateway melted" {
		t.Errorf("unexpected error detail: %+v", upstream)
	}
}

func TestFetchAllUsesExactlySixCalls(t *testing.T) {
	c, hits := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(sampleResponse())
	}, 10)

	ds, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *hits != 6 {
		t.Errorf("expected exactly 6 requests, got %d", *hits)
	}
	if ds.APICallsUsed != 6 {
		t.Errorf("expected APICallsUsed=6, got %d", ds.APICallsUsed)
	}
	if c.Remaining() != 4 {
		t.Errorf("expected 4 remaining, got %d", c.Remaining())
	}
	if len(ds.ByURL) == 0 || len(ds.DeadClicksByURL) == 0 || len(ds.ScrollDepthByBrowserCountry) == 0 {
		t.Error("expected all six payloads populated")
	}
	if ds.FetchedAt == "" {
		t.Error("expected FetchedAt set")
	}
}

func TestFetchAllRespectsQuotaAcrossInvocations(t *testing.T) {
	c, hits := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(sampleResponse())
	}, 10)

	if _, err := c.FetchAll(context.Background()); err != nil {
		t.Fatalf("first FetchAll: %v", err)
	}

	// Second invocation can only claim 4 of the 6 calls it wants.
	_, err := c.FetchAll(context.Background())
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if *hits > 10 {
		t.Errorf("daily maximum exceeded: %d requests", *hits)
	}
}
