package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ligustah/batchproxy/internal/testutils"
)

const probeURL = "http://probe.test/"

func closedProxyURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func TestRunCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no args", args: nil, want: ExitInvalidArgs},
		{name: "help", args: []string{"help"}, want: ExitSuccess},
		{name: "unknown", args: []string{"upload"}, want: ExitInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	a := testutils.GenerateTestData(t, 64*1024)
	b := testutils.GenerateTestData(t, 10*1024)
	proxy1 := testutils.StartProxyServer(t, map[string][]byte{"/a.bin": a, "/b.bin": b})
	proxy2 := testutils.StartProxyServer(t, map[string][]byte{"/a.bin": a, "/b.bin": b})

	dir := t.TempDir()
	code := runFetch([]string{
		"-proxy", proxy1.URL + "," + proxy2.URL,
		"-probe-url", probeURL,
		"-url", "http://files.test/a.bin",
		"-url", "http://files.test/b.bin",
		"-dir", dir,
	})
	if code != ExitSuccess {
		t.Fatalf("fetch failed with exit code %d", code)
	}

	if got := testutils.ReadFile(t, filepath.Join(dir, "a.bin")); !bytes.Equal(got, a) {
		t.Error("a.bin content mismatch")
	}
	if got := testutils.ReadFile(t, filepath.Join(dir, "b.bin")); !bytes.Equal(got, b) {
		t.Error("b.bin content mismatch")
	}
	if n := len(proxy1.Gets()) + len(proxy2.Gets()); n != 2 {
		t.Errorf("expected 2 file requests over both proxies, got %d", n)
	}
}

func TestFetchToBucket(t *testing.T) {
	data := testutils.GenerateTestData(t, 32*1024)
	proxy := testutils.StartProxyServer(t, map[string][]byte{"/a.bin": data})

	dir := t.TempDir()
	code := runFetch([]string{
		"-proxy", proxy.URL,
		"-probe-url", probeURL,
		"-url", "http://files.test/a.bin",
		"-bucket", "file://" + filepath.ToSlash(dir),
		"-dir", "sub",
		"-precache",
	})
	if code != ExitSuccess {
		t.Fatalf("fetch failed with exit code %d", code)
	}

	if got := testutils.ReadFile(t, filepath.Join(dir, "sub", "a.bin")); !bytes.Equal(got, data) {
		t.Error("content mismatch")
	}
}

func TestFetchMissingFile(t *testing.T) {
	proxy := testutils.StartProxyServer(t, map[string][]byte{})

	code := runFetch([]string{
		"-proxy", proxy.URL,
		"-probe-url", probeURL,
		"-url", "http://files.test/missing.bin",
		"-dir", t.TempDir(),
	})
	if code != ExitTransferFailed {
		t.Errorf("expected exit code %d, got %d", ExitTransferFailed, code)
	}
}

func TestFetchPrecacheRejects(t *testing.T) {
	proxy := testutils.StartProxyServer(t, map[string][]byte{"/a.bin": []byte("data")})
	proxy.OmitLength = true

	code := runFetch([]string{
		"-proxy", proxy.URL,
		"-probe-url", probeURL,
		"-url", "http://files.test/a.bin",
		"-dir", t.TempDir(),
		"-precache",
	})
	if code != ExitTransferFailed {
		t.Errorf("expected exit code %d, got %d", ExitTransferFailed, code)
	}
}

func TestFetchNoUsableProxy(t *testing.T) {
	code := runFetch([]string{
		"-proxy", closedProxyURL(t),
		"-probe-url", probeURL,
		"-url", "http://files.test/a.bin",
		"-dir", t.TempDir(),
	})
	if code != ExitNoProxies {
		t.Errorf("expected exit code %d, got %d", ExitNoProxies, code)
	}
}

func TestFetchInvalidArgs(t *testing.T) {
	proxy := testutils.StartProxyServer(t, nil)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no downloads", args: []string{"-proxy", proxy.URL}},
		{name: "no proxies", args: []string{"-url", "http://files.test/a.bin"}},
		{name: "url without name", args: []string{"-proxy", proxy.URL, "-url", "http://files.test/"}},
		{name: "unknown assignment", args: []string{"-proxy", proxy.URL, "-url", "http://files.test/a.bin", "-assignment", "random"}},
		{name: "missing config", args: []string{"-config", "/nonexistent/config.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := runFetch(tt.args); code != ExitInvalidArgs {
				t.Errorf("expected exit code %d, got %d", ExitInvalidArgs, code)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	good := testutils.StartProxyServer(t, nil)

	if code := runCheck([]string{"-proxy", good.URL, "-probe-url", probeURL}); code != ExitSuccess {
		t.Errorf("expected success, got %d", code)
	}

	code := runCheck([]string{"-proxy", good.URL + "," + closedProxyURL(t), "-probe-url", probeURL, "-method", "head"})
	if code != ExitProxyCheckFailed {
		t.Errorf("expected exit code %d, got %d", ExitProxyCheckFailed, code)
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		url     string
		dir     string
		bucket  bool
		want    string
		wantErr bool
	}{
		{url: "http://h/files/a.bin", dir: "out", want: filepath.Join("out", "a.bin")},
		{url: "http://h/a.bin?x=1", dir: ".", bucket: true, want: "a.bin"},
		{url: "http://h/a.bin", dir: "prefix/x", bucket: true, want: "prefix/x/a.bin"},
		{url: "http://h/", dir: ".", wantErr: true},
		{url: "http://h", dir: ".", wantErr: true},
	}

	for _, tt := range tests {
		got, err := destination(tt.url, tt.dir, tt.bucket)
		if (err != nil) != tt.wantErr {
			t.Errorf("destination(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("destination(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
