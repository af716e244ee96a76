package transport

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHTTPClientDefaults(t *testing.T) {
	c := NewHTTPClient(Options{})
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expect *http.Transport, got %T", c.Transport)
	}
	if tr.MaxIdleConnsPerHost != DefaultPoolSize {
		t.Fatalf("expect pool size %d, got %d", DefaultPoolSize, tr.MaxIdleConnsPerHost)
	}
	if tr.IdleConnTimeout != DefaultIdleTimeout {
		t.Fatalf("expect idle timeout %v, got %v", DefaultIdleTimeout, tr.IdleConnTimeout)
	}
	if c.Timeout != 0 {
		t.Fatalf("expect no client timeout, got %v", c.Timeout)
	}
}

func TestConnectionsAreReused(t *testing.T) {
	var conns atomic.Int32
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	ts.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	ts.Start()
	defer ts.Close()

	c := NewHTTPClient(Options{PoolSize: 2, MaxConns: 2, IdleTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Post(ts.URL, "application/json", nil)
			if err != nil {
				t.Error(err)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if n := conns.Load(); n > 2 {
		t.Fatalf("expect at most 2 connections, got %d", n)
	}
}

func TestRedirectsAreNotFollowed(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/b", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "ok")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := NewHTTPClient(Options{}).Post(ts.URL+"/a", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expect status 307, got %d", resp.StatusCode)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expect 1 request, got %d", n)
	}
}
