package pool

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// stats are pool-wide byte and file counters shared by all workers.
type stats struct {
	declared  atomic.Int64 // declared bytes of admitted items, minus failed ones
	completed atomic.Int64 // bytes written for finished items
	failed    atomic.Int64 // items whose transfer failed
}

// Worker owns one proxy-bound transport and drains a queue. At most one
// drain loop runs per worker at any time.
type Worker struct {
	endpoint  *Endpoint
	transport Transport
	queue     *queue
	stats     *stats
	opts      *Options

	mu   sync.Mutex
	done chan struct{} // non-nil while a drain loop is running
	err  error

	removed     atomic.Bool
	current     atomic.Pointer[Item]
	transferred atomic.Int64
}

func newWorker(ep *Endpoint, tr Transport, q *queue, st *stats, opts *Options) *Worker {
	return &Worker{
		endpoint:  ep,
		transport: tr,
		queue:     q,
		stats:     st,
		opts:      opts,
	}
}

// Endpoint returns the proxy this worker sends requests through.
func (w *Worker) Endpoint() *Endpoint {
	return w.endpoint
}

// Name is the proxy's display address.
func (w *Worker) Name() string {
	return w.endpoint.String()
}

// Err returns the error that ended the most recent failed drain loop.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// WakeUp starts a drain loop unless one is already running or the worker was
// removed. Concurrent calls start at most one loop; a running loop picks up
// new items by itself.
func (w *Worker) WakeUp() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil || w.removed.Load() {
		return
	}
	w.done = make(chan struct{})
	go w.drain(w.done)
}

// retire marks the worker removed and reports whether a drain loop is still
// running. No loop starts after retire returns.
func (w *Worker) retire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removed.Store(true)
	return w.done != nil
}

// Busy reports whether a drain loop is running.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done != nil
}

// Wait blocks until the running drain loop, if any, has finished.
func (w *Worker) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HealthCheck sends one request through the proxy. Any response counts as
// healthy; transport errors yield false.
func (w *Worker) HealthCheck(ctx context.Context, url, method string) bool {
	return w.transport.Probe(ctx, method, url) == nil
}

// Progress returns the state of the item currently being transferred.
func (w *Worker) Progress() WorkerProgress {
	p := WorkerProgress{
		Name:        w.Name(),
		Transferred: w.transferred.Load(),
	}
	if it := w.current.Load(); it != nil {
		p.Total = it.Size()
	}
	return p
}

func (w *Worker) String() string {
	return w.Progress().String()
}

// drain runs until the queue is empty or a transfer fails. The empty check
// and the transition to idle happen under w.mu, so an item pushed before a
// WakeUp that found the loop still running is always seen here. A loop that
// is running when its worker is removed keeps draining the queue.
func (w *Worker) drain(done chan struct{}) {
	ctx := context.Background()
	for {
		err := w.drainQueue(ctx)

		w.mu.Lock()
		if err == nil && w.queue.len() > 0 {
			w.mu.Unlock()
			continue
		}
		if err != nil {
			w.err = err
		}
		w.done = nil
		w.mu.Unlock()

		close(done)
		return
	}
}

func (w *Worker) drainQueue(ctx context.Context) error {
	for {
		it := w.next()
		if it == nil {
			return nil
		}

		if w.opts.Hooks.OnStart != nil {
			w.opts.Hooks.OnStart(w, it)
		}

		n, err := w.transfer(ctx, it)
		w.finish(it, n, err)

		if err != nil {
			w.opts.Logger.Printf("worker %s: %s: %v", w.Name(), it, err)
			if w.opts.Hooks.OnError != nil {
				w.opts.Hooks.OnError(w, it, err)
			}
			return fmt.Errorf("transfer %s: %w", it.URL, err)
		}

		if w.opts.Hooks.OnComplete != nil {
			w.opts.Hooks.OnComplete(w, it, n)
		}
	}
}

// next moves the head of the queue into the current slot.
func (w *Worker) next() *Item {
	w.queue.mu.Lock()
	defer w.queue.mu.Unlock()
	it := w.queue.popLocked()
	if it != nil {
		w.transferred.Store(0)
		w.current.Store(it)
	}
	return it
}

// finish clears the current slot. Completed bytes move to the pool totals;
// a failed item's declared size leaves them.
func (w *Worker) finish(it *Item, written int64, err error) {
	w.queue.mu.Lock()
	defer w.queue.mu.Unlock()
	if err != nil {
		w.stats.declared.Add(-it.Size())
		w.stats.failed.Add(1)
	} else {
		w.stats.completed.Add(written)
	}
	w.transferred.Store(0)
	w.current.Store(nil)
}

// transfer downloads it to its destination in ChunkSize pieces, updating the
// transferred counter after every chunk.
func (w *Worker) transfer(ctx context.Context, it *Item) (int64, error) {
	resp, err := w.transport.Get(ctx, it.URL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if it.Size() == 0 && resp.ContentLength > 0 {
		it.size.Store(resp.ContentLength)
		w.stats.declared.Add(resp.ContentLength)
	}

	// Cancelling the sink context before Close aborts bucket writes.
	sinkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dst, err := w.opts.Sink.Create(sinkCtx, it.Path)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}

	buf := make([]byte, w.opts.ChunkSize)
	var written int64
	for {
		nr, readErr := resp.Body.Read(buf)
		if nr > 0 {
			nw, writeErr := dst.Write(buf[:nr])
			written += int64(nw)
			w.transferred.Store(written)
			if writeErr == nil && nw < nr {
				writeErr = io.ErrShortWrite
			}
			if writeErr != nil {
				cancel()
				dst.Close()
				return written, fmt.Errorf("write: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cancel()
			dst.Close()
			return written, fmt.Errorf("read: %w", readErr)
		}
	}

	if err := dst.Close(); err != nil {
		return written, fmt.Errorf("close destination: %w", err)
	}
	return written, nil
}
