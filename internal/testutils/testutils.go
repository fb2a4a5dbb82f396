// Package testutils provides shared test infrastructure.
package testutils

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// GenerateTestData generates test data of the given size.
// For files <= 10MB, uses deterministic pattern. For larger files, uses random data.
func GenerateTestData(t *testing.T, size int64) []byte {
	t.Helper()
	data := make([]byte, size)
	if size <= 10*1024*1024 {
		for i := range data {
			data[i] = byte(i % 256)
		}
	} else {
		if _, err := rand.Read(data); err != nil {
			t.Fatalf("generate random data: %v", err)
		}
	}
	return data
}

// Request records one request seen by a ProxyServer.
type Request struct {
	Method    string
	URL       string
	UserAgent string
	ProxyAuth string
}

// ProxyServer is a fake forward proxy. It answers every proxied request
// itself, serving in-memory files by path regardless of the target host.
// Unknown paths get 404, except "/" which always gets 200.
type ProxyServer struct {
	*httptest.Server

	// Username and Password, when set, are required as proxy credentials.
	Username string
	Password string

	// OmitLength serves bodies without a Content-Length header, on HEAD and GET.
	OmitLength bool

	// Truncate declares the full Content-Length on GET but sends only the
	// first half of the body before closing the connection.
	Truncate bool

	mu       sync.Mutex
	files    map[string][]byte
	requests []Request
	hold     chan struct{}
	started  chan string
}

// StartProxyServer starts a ProxyServer serving files keyed by path
// ("/a.bin").
func StartProxyServer(t *testing.T, files map[string][]byte) *ProxyServer {
	t.Helper()
	ps := &ProxyServer{
		files:   files,
		started: make(chan string, 1024),
	}
	ps.Server = httptest.NewServer(http.HandlerFunc(ps.serve))
	t.Cleanup(ps.Close)
	t.Cleanup(ps.Release) // runs first; Close waits for held responses
	return ps
}

// Hold makes GET responses block after their headers until Release is
// called.
func (ps *ProxyServer) Hold() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.hold = make(chan struct{})
}

// Release unblocks held responses.
func (ps *ProxyServer) Release() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.hold != nil {
		close(ps.hold)
		ps.hold = nil
	}
}

// Started receives the path of every GET once its headers were sent.
func (ps *ProxyServer) Started() <-chan string {
	return ps.started
}

// Requests returns the requests seen so far.
func (ps *ProxyServer) Requests() []Request {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]Request(nil), ps.requests...)
}

// Gets returns the paths of GET requests for files, in arrival order.
func (ps *ProxyServer) Gets() []string {
	var paths []string
	for _, r := range ps.Requests() {
		if r.Method == http.MethodGet && !strings.HasSuffix(r.URL, "/") {
			paths = append(paths, r.URL[strings.LastIndex(r.URL, "/"):])
		}
	}
	return paths
}

func (ps *ProxyServer) serve(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	ps.requests = append(ps.requests, Request{
		Method:    r.Method,
		URL:       r.URL.String(),
		UserAgent: r.UserAgent(),
		ProxyAuth: r.Header.Get("Proxy-Authorization"),
	})
	hold := ps.hold
	data, ok := ps.files[r.URL.Path]
	ps.mu.Unlock()

	if ps.Username != "" {
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte(ps.Username+":"+ps.Password))
		if r.Header.Get("Proxy-Authorization") != want {
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
	}

	if r.URL.Path == "/" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	if !ps.OmitLength {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	}
	if r.Method == http.MethodHead {
		return
	}

	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	ps.started <- r.URL.Path
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if ps.Truncate {
		data = data[:len(data)/2]
	}
	io.Copy(w, bytes.NewReader(data))
}

// ReadFile reads path and fails the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
