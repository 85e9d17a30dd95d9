package httpretry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(doer HTTPDoer, retries int) *RetryClient {
	rc := New(doer, retries)
	rc.baseDelay = time.Millisecond
	rc.maxDelay = 5 * time.Millisecond
	return rc
}

func TestDoRetriesOnServerError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := fastClient(server.Client(), 3).Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after retries", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("hits = %d, want 3", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := fastClient(server.Client(), 3).Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 passed through", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("hits = %d, want no retries on 4xx", got)
	}
}

func TestDoReturnsFinalResponseWhenExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := fastClient(server.Client(), 2).Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v, want the final response for inspection", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

type failingDoer struct{ calls int32 }

func (d *failingDoer) Do(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&d.calls, 1)
	return nil, errors.New("connection refused")
}

func TestDoRetriesNetworkErrors(t *testing.T) {
	doer := &failingDoer{}
	req, _ := http.NewRequest(http.MethodGet, "http://unreachable.invalid/", nil)
	if _, err := fastClient(doer, 2).Do(req); err == nil {
		t.Fatal("Do() succeeded against a failing transport")
	}
	if got := atomic.LoadInt32(&doer.calls); got != 3 {
		t.Errorf("calls = %d, want initial attempt plus 2 retries", got)
	}
}

func TestRetryableStatus(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	for _, code := range retryable {
		if !retryableStatus(code) {
			t.Errorf("retryableStatus(%d) = false", code)
		}
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 422} {
		if retryableStatus(code) {
			t.Errorf("retryableStatus(%d) = true", code)
		}
	}
}

func TestBackoffBounds(t *testing.T) {
	rc := New(nil, 5)
	for attempt := 1; attempt <= 10; attempt++ {
		d := rc.backoff(attempt)
		if d < 100*time.Millisecond {
			t.Errorf("backoff(%d) = %v, below the floor", attempt, d)
		}
		if d > rc.maxDelay {
			t.Errorf("backoff(%d) = %v, above maxDelay %v", attempt, d, rc.maxDelay)
		}
	}
}
