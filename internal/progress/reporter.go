package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"

	"github.com/ligustah/batchproxy/internal/pool"
)

// Source yields pool snapshots. *pool.Pool implements it.
type Source interface {
	Snapshot() pool.Snapshot
}

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to poll the source.
	// Default: 1s
	UpdateInterval time.Duration

	// ShowWorkers adds one line per worker to every update.
	ShowWorkers bool
}

// Reporter periodically renders pool snapshots as human-readable lines.
// When Output is a terminal, updates overwrite the previous line.
type Reporter struct {
	opts   Options
	source Source
	inline bool

	completedFiles atomic.Int64

	mu        sync.Mutex
	startTime time.Time
	lastTick  time.Time
	lastBytes int64
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	stopped   bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = time.Second
	}

	return &Reporter{
		opts:   opts,
		inline: isTerminal(opts.Output),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Hooks returns pool hooks that feed the reporter's completed file counter.
func (r *Reporter) Hooks() pool.Hooks {
	return pool.Hooks{
		OnComplete: func(*pool.Worker, *pool.Item, int64) {
			r.completedFiles.Add(1)
		},
	}
}

// CompletedFiles returns the number of items reported complete via Hooks.
func (r *Reporter) CompletedFiles() int64 {
	return r.completedFiles.Load()
}

// Start begins polling source and outputting progress information.
func (r *Reporter) Start(source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.source = source
	r.startTime = time.Now()
	r.lastTick = r.startTime

	go r.updateLoop()
}

// Stop stops the reporter and writes the final status. It returns after the
// final status was written.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus(r.source.Snapshot())
			return
		case <-ticker.C:
			r.printProgress(r.source.Snapshot(), time.Now())
		}
	}
}

func (r *Reporter) printProgress(s pool.Snapshot, now time.Time) {
	elapsed := now.Sub(r.lastTick).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(s.TransferredBytes-r.lastBytes) / elapsed
	if speed < 0 {
		speed = 0
	}
	r.lastTick = now
	r.lastBytes = s.TransferredBytes

	eta := "calculating..."
	if remaining := s.TotalBytes - s.TransferredBytes; remaining <= 0 {
		eta = "0s"
	} else if speed > 0 {
		eta = formatDuration(time.Duration(float64(remaining) / speed * float64(time.Second)))
	}

	line := fmt.Sprintf("[batchproxy] Progress: %d%% | %s / %s | Speed: %s/s | ETA: %s | Files: %d pending, %d completed, %d failed",
		s.Percent(),
		FormatBytes(s.TransferredBytes),
		FormatBytes(s.TotalBytes),
		FormatBytes(int64(speed)),
		eta,
		s.TotalFiles,
		r.completedFiles.Load(),
		s.FailedFiles,
	)

	out := r.opts.Output
	if r.inline {
		fmt.Fprintf(out, "\r%s    ", line)
		return
	}
	fmt.Fprintln(out, line)
	if r.opts.ShowWorkers {
		for _, w := range s.Workers {
			fmt.Fprintf(out, "[batchproxy]   %s\n", w)
		}
	}
}

func (r *Reporter) printFinalStatus(s pool.Snapshot) {
	duration := time.Since(r.startTime)
	avgSpeed := float64(s.TransferredBytes) / max(duration.Seconds(), 0.001)

	out := r.opts.Output
	if r.inline {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "[batchproxy] Progress: %d%% | %s / %s | Files: %d pending, %d completed, %d failed\n",
		s.Percent(),
		FormatBytes(s.TransferredBytes),
		FormatBytes(s.TotalBytes),
		s.TotalFiles,
		r.completedFiles.Load(),
		s.FailedFiles,
	)
	fmt.Fprintf(out, "[batchproxy] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		FormatBytes(int64(avgSpeed)),
	)
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

var binaryUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// FormatBytes formats bytes using binary units, e.g. "1.5 KiB" or "256 MiB".
func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b)
	unit := ""
	for _, u := range binaryUnits {
		v /= 1024
		unit = u
		if v < 1024 {
			break
		}
	}
	if v >= 100 {
		return fmt.Sprintf("%.0f %s", v, unit)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

var byteSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"KiB", 1 << 10},
	{"MiB", 1 << 20},
	{"GiB", 1 << 30},
	{"TiB", 1 << 40},
	{"KB", 1000},
	{"MB", 1000 * 1000},
	{"GB", 1000 * 1000 * 1000},
	{"TB", 1000 * 1000 * 1000 * 1000},
	{"B", 1},
}

// ParseBytes parses a human-readable byte string. Binary suffixes (KiB, MiB,
// GiB, TiB) use powers of 1024, SI suffixes (KB, MB, GB, TB) powers of 1000.
func ParseBytes(s string) (int64, error) {
	num := strings.TrimSpace(s)
	var multiplier int64 = 1
	for _, u := range byteSuffixes {
		if strings.HasSuffix(num, u.suffix) {
			multiplier = u.multiplier
			num = strings.TrimSpace(strings.TrimSuffix(num, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}

	return int64(value * float64(multiplier)), nil
}
