package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientGetVersions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/versions" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("ids")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","msg":{"1":"v1.0","2":"v2.1","bad":"x"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(1))
	res := c.GetVersions(context.Background(), []int{1, 2})
	if !res.IsOk() {
		t.Fatalf("GetVersions: %v", res.Err)
	}
	if gotQuery != "1,2" {
		t.Errorf("ids query = %q", gotQuery)
	}
	if len(res.Value) != 2 || res.Value[1] != "v1.0" || res.Value[2] != "v2.1" {
		t.Errorf("versions = %v", res.Value)
	}
}

func TestClientGetVersionsEmptySkipsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	res := NewClient(srv.URL).GetVersions(context.Background(), nil)
	if !res.IsOk() || len(res.Value) != 0 {
		t.Fatalf("GetVersions(nil) = %+v", res)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("made %d requests, want 0", calls)
	}
}

func TestClientGetGame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/77" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Client") != "avn" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","msg":{"thread_id":77,"title":"New Title","version":"1.1","tags":["a"],"release_date":"2024-01-31"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithHeaders(map[string]string{"X-Client": "avn"}))
	res := c.GetGame(context.Background(), 77)
	if !res.IsOk() {
		t.Fatalf("GetGame: %v", res.Err)
	}
	if res.Value.Title != "New Title" || res.Value.Version != "1.1" || res.Value.ThreadID != 77 {
		t.Errorf("game = %+v", res.Value)
	}
}

func TestClientGetGameFillsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","msg":{"title":"x","version":"1.0"}}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL).GetGame(context.Background(), 42)
	if !res.IsOk() {
		t.Fatalf("GetGame: %v", res.Err)
	}
	if res.Value.ThreadID != 42 || res.Value.Title != "x" {
		t.Errorf("game = %+v", res.Value)
	}
}

func TestClientStatusNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","msg":"rate limited"}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL).GetGame(context.Background(), 1)
	if res.IsOk() {
		t.Fatal("expected error for non-ok status")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","msg":{"5":"1.0"}}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL, WithRetry(3)).GetVersions(context.Background(), []int{5})
	if !res.IsOk() {
		t.Fatalf("GetVersions: %v", res.Err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := NewClient(srv.URL, WithRetry(3), WithTimeout(time.Second)).GetGame(context.Background(), 9)
	if res.IsOk() {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Errorf("unexpected backoff: %v %v", backoffDuration(1), backoffDuration(3))
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Error("backoff should be capped")
	}
}
