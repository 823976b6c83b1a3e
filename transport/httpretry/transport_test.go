/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package httpretry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/smellfix/agents/executor/retry"
)

func fastConfig(maxRetries int) retry.RetryConfig {
	return retry.RetryConfig{
		MaxRetries:  maxRetries,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		Strategy:    retry.DecorrelatedJitter,
	}
}

// sequence answers with the given statuses in order, repeating the last one.
func sequence(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		status := statuses[min(n, len(statuses)-1)]
		w.WriteHeader(status)
		_, _ = io.WriteString(w, http.StatusText(status))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{{
		name:       "success first time",
		statuses:   []int{http.StatusOK},
		maxRetries: 3,
		wantStatus: http.StatusOK,
		wantCalls:  1,
	}, {
		name:       "rate limited then success",
		statuses:   []int{http.StatusTooManyRequests, http.StatusOK},
		maxRetries: 3,
		wantStatus: http.StatusOK,
		wantCalls:  2,
	}, {
		name:       "server errors then success",
		statuses:   []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusOK},
		maxRetries: 3,
		wantStatus: http.StatusOK,
		wantCalls:  3,
	}, {
		name:       "client error is not retried",
		statuses:   []int{http.StatusBadRequest},
		maxRetries: 3,
		wantStatus: http.StatusBadRequest,
		wantCalls:  1,
	}, {
		name:       "exhausted returns the last response",
		statuses:   []int{http.StatusInternalServerError},
		maxRetries: 2,
		wantStatus: http.StatusInternalServerError,
		wantCalls:  3,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, calls := sequence(t, tt.statuses...)
			client := New("test", WithRetryConfig(fastConfig(tt.maxRetries))).Client(10 * time.Second)

			resp, err := client.Get(srv.URL)
			if err != nil {
				t.Fatalf("Get() = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status: got = %d, wanted %d", resp.StatusCode, tt.wantStatus)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls: got = %d, wanted %d", got, tt.wantCalls)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("ReadAll() = %v", err)
			}
			if want := http.StatusText(tt.wantStatus); string(body) != want {
				t.Errorf("body: got = %q, wanted %q", body, want)
			}
		})
	}
}

func TestRoundTripReplaysBody(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New("test", WithRetryConfig(fastConfig(5))).Client(10 * time.Second)
	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"x":1}`))
	if err != nil {
		t.Fatalf("Post() = %v", err)
	}
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 3 {
		t.Fatalf("attempts: got = %d, wanted 3", len(bodies))
	}
	for i, b := range bodies {
		if b != `{"x":1}` {
			t.Errorf("attempt %d body: got = %q, wanted the original body", i, b)
		}
	}
}

func TestRoundTripHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The computed backoff would be an hour; Retry-After says retry now.
	cfg := retry.RetryConfig{MaxRetries: 1, BaseBackoff: time.Hour, MaxBackoff: time.Hour, Strategy: retry.Constant}
	client := New("test", WithRetryConfig(cfg)).Client(10 * time.Second)

	start := time.Now()
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got = %d, wanted 200", resp.StatusCode)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("elapsed: got = %v, Retry-After was ignored", elapsed)
	}
}

func TestRoundTripCancelled(t *testing.T) {
	srv, _ := sequence(t, http.StatusServiceUnavailable)

	cfg := retry.RetryConfig{MaxRetries: 3, BaseBackoff: time.Hour, MaxBackoff: time.Hour, Strategy: retry.Constant}
	client := New("test", WithRetryConfig(cfg)).Client(0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() = %v", err)
	}

	_, err = client.Do(req)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error: got = %v, wanted deadline exceeded", err)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
		ok     bool
	}{{
		name:   "missing",
		header: "",
	}, {
		name:   "delta seconds",
		header: "7",
		want:   7 * time.Second,
		ok:     true,
	}, {
		name:   "future date",
		header: now.Add(90 * time.Second).Format(http.TimeFormat),
		want:   90 * time.Second,
		ok:     true,
	}, {
		name:   "past date means no wait",
		header: now.Add(-time.Hour).Format(http.TimeFormat),
		want:   0,
		ok:     true,
	}, {
		name:   "garbage",
		header: "soon",
	}, {
		name:   "negative delta",
		header: "-3",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := retryAfter(tt.header, now)
			if ok != tt.ok || got != tt.want {
				t.Errorf("retryAfter(%q): got = (%v, %v), wanted (%v, %v)", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}
