package pool

import (
	"fmt"
	"strings"
)

// WorkerProgress is a worker's view of the item it is transferring.
type WorkerProgress struct {
	Name        string
	Transferred int64
	// Total is the declared size of the current item, 0 when idle or unknown.
	Total int64
}

// Percent returns the completion of the current item.
func (p WorkerProgress) Percent() int {
	return percent(p.Transferred, p.Total)
}

func (p WorkerProgress) String() string {
	return p.Name + " | " + completion(p.Transferred, p.Total)
}

// Snapshot is the progress of a pool at one point in time. It is computed
// from live state on every call and never cached.
type Snapshot struct {
	// TotalFiles counts queued items plus items being transferred, including
	// those of removed workers that are still draining.
	TotalFiles int
	// FilesPerWorker counts, per worker, its in-flight item plus, under
	// PolicyLeastLoaded, its own backlog.
	FilesPerWorker []int
	// PendingBytes is the declared size of queued and in-flight items.
	PendingBytes int64
	// TotalBytes is the declared size of every item admitted so far,
	// excluding failed ones.
	TotalBytes int64
	// TransferredBytes counts bytes of completed items plus the bytes
	// transferred so far for in-flight items.
	TransferredBytes int64
	// FailedFiles counts items whose transfer failed.
	FailedFiles int
	Workers     []WorkerProgress
}

// Percent returns the pool-wide completion.
func (s Snapshot) Percent() int {
	return percent(s.TransferredBytes, s.TotalBytes)
}

func (s Snapshot) String() string {
	counts := make([]string, len(s.FilesPerWorker))
	for i, n := range s.FilesPerWorker {
		counts[i] = fmt.Sprint(n)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d in [%s] | ", s.TotalFiles, strings.Join(counts, ", "))
	b.WriteString(completion(s.TransferredBytes, s.TotalBytes))
	for _, w := range s.Workers {
		b.WriteString("\n\t")
		b.WriteString(w.String())
	}
	return b.String()
}

func (s *Snapshot) addWorker(i int, w *Worker, queued int, queuedBytes int64) {
	files := queued
	s.PendingBytes += queuedBytes
	if it := w.current.Load(); it != nil {
		files++
		s.PendingBytes += it.Size()
	}
	s.FilesPerWorker[i] = files
	s.TotalFiles += files

	wp := w.Progress()
	s.Workers[i] = wp
	s.TransferredBytes += wp.Transferred
}

// addRemoved counts the in-flight item of a removed worker that is still
// draining. It has no per-worker entry.
func (s *Snapshot) addRemoved(w *Worker) {
	if it := w.current.Load(); it != nil {
		s.TotalFiles++
		s.PendingBytes += it.Size()
		s.TransferredBytes += w.transferred.Load()
	}
}

func (s *Snapshot) addTotals(st *stats) {
	s.TotalBytes = st.declared.Load()
	s.TransferredBytes += st.completed.Load()
	s.FailedFiles = int(st.failed.Load())
}

// percent is floor(cur/total*100). Zero declared bytes count as complete.
// A body longer than its declared size yields more than 100.
func percent(cur, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(cur * 100 / total)
}

func completion(cur, total int64) string {
	if total <= 0 {
		return "100% completed | "
	}
	return fmt.Sprintf("%d%% completed | [%d/%d] bytes", percent(cur, total), cur, total)
}
