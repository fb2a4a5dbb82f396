package pool

import (
	"strings"
	"testing"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		cur, total int64
		want       int
	}{
		{250, 1000, 25},
		{0, 1000, 0},
		{999, 1000, 99},
		{1000, 1000, 100},
		{0, 0, 100},
		{500, 0, 100},
		{2000, 1000, 200},
		{1, 3, 33},
	}

	for _, tt := range tests {
		if got := percent(tt.cur, tt.total); got != tt.want {
			t.Errorf("percent(%d, %d) = %d, want %d", tt.cur, tt.total, got, tt.want)
		}
	}
}

func TestWorkerProgressString(t *testing.T) {
	tests := []struct {
		p    WorkerProgress
		want string
	}{
		{WorkerProgress{Name: "http://p1:3128", Transferred: 250, Total: 1000}, "http://p1:3128 | 25% completed | [250/1000] bytes"},
		{WorkerProgress{Name: "http://p1:3128", Transferred: 70}, "http://p1:3128 | 100% completed | "},
	}

	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		TotalFiles:       3,
		FilesPerWorker:   []int{1, 0},
		TotalBytes:       400,
		TransferredBytes: 100,
		Workers: []WorkerProgress{
			{Name: "http://p1:3128", Transferred: 50, Total: 100},
			{Name: "http://p2:3128"},
		},
	}

	want := strings.Join([]string{
		"Files: 3 in [1, 0] | 25% completed | [100/400] bytes",
		"\thttp://p1:3128 | 50% completed | [50/100] bytes",
		"\thttp://p2:3128 | 100% completed | ",
	}, "\n")
	if got := s.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestItemString(t *testing.T) {
	it, err := newItem("http://files.test/a.bin", "/tmp/a.bin", 0)
	if err != nil {
		t.Fatalf("newItem: %v", err)
	}
	if got := it.String(); got != "http://files.test/a.bin -> /tmp/a.bin; size: ?" {
		t.Errorf("unexpected string %q", got)
	}

	it.size.Store(42)
	if got := it.String(); got != "http://files.test/a.bin -> /tmp/a.bin; size: 42" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestQueueFIFO(t *testing.T) {
	q := newQueue()
	var items []*Item
	for i := 0; i < 5; i++ {
		it, err := newItem("http://files.test/x", "x", int64(i+1))
		if err != nil {
			t.Fatalf("newItem: %v", err)
		}
		items = append(items, it)
		q.push(it)
	}

	q.mu.Lock()
	if n := q.bytesLocked(); n != 15 {
		t.Errorf("expected 15 queued bytes, got %d", n)
	}
	for i, want := range items {
		if got := q.popLocked(); got != want {
			t.Errorf("pop %d: got %v, want %v", i, got, want)
		}
	}
	if q.popLocked() != nil {
		t.Error("expected empty queue")
	}
	q.mu.Unlock()
}

func TestNewEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		creds    *Credentials
		wantAddr string
		wantUser string
		wantErr  bool
	}{
		{name: "plain", address: "http://10.8.8.1:3128", wantAddr: "http://10.8.8.1:3128"},
		{name: "no scheme", address: "10.8.8.1:3128", wantAddr: "http://10.8.8.1:3128"},
		{name: "embedded creds", address: "http://user:pw@10.8.8.1:3128", wantAddr: "http://10.8.8.1:3128", wantUser: "user"},
		{name: "explicit creds win", address: "http://user:pw@10.8.8.1:3128", creds: &Credentials{Username: "other"}, wantAddr: "http://10.8.8.1:3128", wantUser: "other"},
		{name: "socks", address: "socks5://10.8.8.1:1080", wantAddr: "socks5://10.8.8.1:1080"},
		{name: "bad scheme", address: "ftp://10.8.8.1:21", wantErr: true},
		{name: "no host", address: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := NewEndpoint(tt.address, tt.creds)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEndpoint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ep.String() != tt.wantAddr {
				t.Errorf("expected address %s, got %s", tt.wantAddr, ep.String())
			}
			gotUser := ""
			if ep.Credentials != nil {
				gotUser = ep.Credentials.Username
			}
			if gotUser != tt.wantUser {
				t.Errorf("expected user %q, got %q", tt.wantUser, gotUser)
			}
			if tt.wantUser != "" && ep.ProxyURL().User.Username() != tt.wantUser {
				t.Errorf("expected proxy url to carry user %q", tt.wantUser)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"", "shared", "least-loaded"} {
		if _, err := ParsePolicy(s); err != nil {
			t.Errorf("ParsePolicy(%q): %v", s, err)
		}
	}
	if _, err := ParsePolicy("round-robin"); err == nil {
		t.Error("expected error for unknown policy")
	}
	if PolicyLeastLoaded.String() != "least-loaded" {
		t.Errorf("unexpected String() %q", PolicyLeastLoaded.String())
	}
}
