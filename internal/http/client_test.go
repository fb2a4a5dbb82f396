package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ligustah/batchproxy/internal/testutils"
)

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "1024")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Last-Modified", "Sat, 01 Jan 2025 00:00:00 GMT")
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	info, err := client.Head(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}

	if info.Size != 1024 {
		t.Errorf("expected size 1024, got %d", info.Size)
	}
	if info.ETag != "abc123" {
		t.Errorf("expected ETag 'abc123', got %s", info.ETag)
	}
	if info.ContentType != "application/octet-stream" {
		t.Errorf("expected content-type 'application/octet-stream', got %s", info.ContentType)
	}
	if info.LastModified.IsZero() {
		t.Error("expected Last-Modified to be parsed")
	}
}

func TestHeadUnknownSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	info, err := client.Head(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if info.Size != -1 {
		t.Errorf("expected size -1, got %d", info.Size)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusProxyAuthRequired, ErrProxyAuth},
		{http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(DefaultOptions())
			if _, err := client.Head(context.Background(), server.URL); !errors.Is(err, tt.want) {
				t.Errorf("Head: expected %v, got %v", tt.want, err)
			}
			if _, err := client.Get(context.Background(), server.URL); !errors.Is(err, tt.want) {
				t.Errorf("Get: expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGet(t *testing.T) {
	data := []byte("Hello, World! This is test data.")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength != int64(len(data)) {
		t.Errorf("expected content length %d, got %d", len(data), resp.ContentLength)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != string(data) {
		t.Errorf("expected %q, got %q", data, body)
	}
}

func TestProbeAcceptsAnyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		if err := client.Probe(context.Background(), method, server.URL); err != nil {
			t.Errorf("Probe %s: %v", method, err)
		}
	}
}

func TestProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(nil)
	addr := server.URL
	server.Close()

	client := NewClient(DefaultOptions())
	if err := client.Probe(context.Background(), http.MethodGet, addr); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestRequestsGoThroughProxy(t *testing.T) {
	ps := testutils.StartProxyServer(t, map[string][]byte{"/file.bin": []byte("proxied")})
	ps.Username = "user"
	ps.Password = "pass"

	proxyURL, err := url.Parse(ps.URL)
	if err != nil {
		t.Fatalf("parse proxy url: %v", err)
	}
	proxyURL.User = url.UserPassword("user", "pass")

	client := NewClient(Options{Proxy: proxyURL, UserAgent: "ua-test"})
	resp, err := client.Get(context.Background(), "http://origin.test/file.bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "proxied" {
		t.Errorf("expected body from proxy, got %q", body)
	}

	reqs := ps.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 proxied request, got %d", len(reqs))
	}
	if reqs[0].URL != "http://origin.test/file.bin" {
		t.Errorf("expected absolute target url, got %s", reqs[0].URL)
	}
	if reqs[0].UserAgent != "ua-test" {
		t.Errorf("expected user agent 'ua-test', got %q", reqs[0].UserAgent)
	}
	if reqs[0].ProxyAuth == "" {
		t.Error("expected Proxy-Authorization header")
	}
}

func TestDefaultUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
	}))
	defer server.Close()

	client := NewClient(Options{})
	if err := client.Probe(context.Background(), http.MethodHead, server.URL); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got != DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", got)
	}
}

func TestCleanETag(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"abc123"`, "abc123"},
		{`W/"abc123"`, "abc123"},
		{"abc123", "abc123"},
		{`""`, ""},
	}

	for _, tt := range tests {
		result := cleanETag(tt.input)
		if result != tt.expected {
			t.Errorf("cleanETag(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(DefaultOptions())
	_, err := client.Head(ctx, server.URL)
	if err == nil {
		t.Error("expected error due to context cancellation")
	}
}
