package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		RateLimit:   time.Millisecond,
		Timeout:     2 * time.Second,
	}
}

func TestClientRetriesUntilSuccess(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("missing Accept-Language header")
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, ok := NewClient(fastPolicy()).Get(context.Background(), srv.URL)
	if !ok {
		t.Fatalf("Get should succeed on the third attempt")
	}
	if body != "<html>ok</html>" {
		t.Fatalf("body = %q", body)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("server hits = %d, want 3", n)
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	body, ok := NewClient(fastPolicy()).Get(context.Background(), srv.URL)
	if ok || body != "" {
		t.Fatalf("Get = (%q, %v), want no content", body, ok)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("server hits = %d, want 3", n)
	}
}

func TestClientStopsRetryingWhenContextCancelled(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	policy := fastPolicy()
	policy.RetryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, ok := NewClient(policy).Get(ctx, srv.URL); ok {
		t.Fatalf("Get should fail")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("server hits = %d, want 1", n)
	}
}
