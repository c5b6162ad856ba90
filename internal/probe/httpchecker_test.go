package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPChecker_Status200IsUp(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if !out.Up {
		t.Fatalf("want up, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
}

func TestHTTPChecker_NonOKStatusIsDown(t *testing.T) {
	// any non-200 counts as down, success-family codes included
	for _, code := range []int{204, 404, 500} {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		chk := NewHTTPChecker(2 * time.Second)
		out := chk.Check(context.Background(), s.URL)
		s.Close()
		if out.Up {
			t.Fatalf("code %d: want down, got %+v", code, out)
		}
		if !strings.HasPrefix(out.Detail, "status: ") {
			t.Fatalf("code %d: want status detail, got %q", code, out.Detail)
		}
	}
}

func TestHTTPChecker_TimeoutIsDownWithConnectionDetail(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Up {
		t.Fatalf("want down on timeout, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
	if out.Detail != "connection error/timeout" {
		t.Fatalf("want connection detail, got %q", out.Detail)
	}
}

func TestHTTPChecker_ConnectionRefusedIsDown(t *testing.T) {
	chk := NewHTTPChecker(time.Second)
	out := chk.Check(context.Background(), "http://127.0.0.1:1")
	if out.Up {
		t.Fatalf("want down, got %+v", out)
	}
}

func TestHTTPChecker_SendsUserAgent(t *testing.T) {
	var got string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(200)
	}))
	defer s.Close()

	NewHTTPChecker(time.Second).Check(context.Background(), s.URL)
	if !strings.HasPrefix(got, "uptimebot/") {
		t.Fatalf("want uptimebot user agent, got %q", got)
	}
}
