package pool

import (
	"context"
	"fmt"
	"sync"
)

// Pool distributes downloads over a set of proxy-bound workers.
type Pool struct {
	opts  Options
	queue *queue // shared queue; unused under PolicyLeastLoaded
	stats stats

	mu      sync.RWMutex
	workers []*Worker
	retired []*Worker // removed workers whose drain loop may still run
}

// New creates an empty pool.
func New(opts Options) (*Pool, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	return &Pool{
		opts:  opts,
		queue: newQueue(),
	}, nil
}

// AddProxy creates a worker for the proxy at address. When health checks on
// add are enabled the proxy is probed first and, if the probe gets no
// response, the worker is discarded and ErrProbeFailed is returned.
func (p *Pool) AddProxy(ctx context.Context, address string, creds *Credentials) (*Worker, error) {
	ep, err := NewEndpoint(address, creds)
	if err != nil {
		return nil, err
	}

	tr, err := p.opts.NewTransport(ep, p.opts.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("create transport for %s: %w", ep, err)
	}

	q := p.queue
	if p.opts.Policy == PolicyLeastLoaded {
		q = newQueue()
	}
	w := newWorker(ep, tr, q, &p.stats, &p.opts)

	if p.opts.HealthCheckOnAdd {
		if err := tr.Probe(ctx, p.opts.ProbeMethod, p.opts.ProbeURL); err != nil {
			p.opts.Logger.Printf("proxy %s rejected: %v", ep, err)
			return nil, fmt.Errorf("%w: %s: %v", ErrProbeFailed, ep, err)
		}
	}

	p.mu.Lock()
	p.workers = append(p.workers, w)
	p.mu.Unlock()
	p.opts.Logger.Printf("proxy %s added", ep)

	// Items may have been queued while the pool had no workers.
	w.WakeUp()
	return w, nil
}

// RemoveProxy removes the worker at index. Out-of-range indexes are
// ignored. The worker is no longer woken up, but a drain loop it is running
// is not cancelled and keeps taking items until its queue is empty. Under
// PolicyLeastLoaded the worker's backlog is reassigned to the remaining
// workers.
func (p *Pool) RemoveProxy(index int) {
	p.mu.Lock()
	if index < 0 || index >= len(p.workers) {
		p.mu.Unlock()
		return
	}
	w := p.workers[index]
	workers := make([]*Worker, 0, len(p.workers)-1)
	workers = append(workers, p.workers[:index]...)
	p.workers = append(workers, p.workers[index+1:]...)
	if w.retire() {
		p.retired = append(p.retired, w)
	}
	p.mu.Unlock()

	p.opts.Logger.Printf("proxy %s removed", w.Name())

	if p.opts.Policy != PolicyLeastLoaded {
		return
	}
	backlog := w.queue.takeAll()
	for _, it := range backlog {
		if err := p.enqueue(it); err != nil {
			p.stats.declared.Add(-it.Size())
			p.opts.Logger.Printf("dropped %s: %v", it, err)
		}
	}
	if len(backlog) > 0 {
		p.wakeAll()
	}
}

// Workers returns a copy of the current worker list.
func (p *Pool) Workers() []*Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Worker(nil), p.workers...)
}

// draining returns the removed workers whose drain loop is still running and
// forgets the ones that went idle.
func (p *Pool) draining() []*Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	live := p.retired[:0]
	for _, w := range p.retired {
		if w.Busy() {
			live = append(live, w)
		}
	}
	clear(p.retired[len(live):])
	p.retired = live
	return append([]*Worker(nil), live...)
}

// Endpoints returns the proxies of the current workers, in order.
func (p *Pool) Endpoints() []*Endpoint {
	workers := p.Workers()
	eps := make([]*Endpoint, len(workers))
	for i, w := range workers {
		eps[i] = w.Endpoint()
	}
	return eps
}

// CheckProxy probes the worker at index. An empty url or method falls back
// to the configured probe settings. The error is only set for invalid
// arguments; an unreachable proxy yields false.
func (p *Pool) CheckProxy(ctx context.Context, index int, url, method string) (bool, error) {
	if method == "" {
		method = p.opts.ProbeMethod
	}
	if err := checkMethod(method); err != nil {
		return false, err
	}
	if url == "" {
		url = p.opts.ProbeURL
	}

	p.mu.RLock()
	if index < 0 || index >= len(p.workers) {
		n := len(p.workers)
		p.mu.RUnlock()
		return false, configError("index", fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, n))
	}
	w := p.workers[index]
	p.mu.RUnlock()

	return w.HealthCheck(ctx, url, method), nil
}

// CheckAllProxies probes every current worker concurrently. Results are in
// worker order as of the call.
func (p *Pool) CheckAllProxies(ctx context.Context, url string) []bool {
	if url == "" {
		url = p.opts.ProbeURL
	}
	workers := p.Workers()
	results := make([]bool, len(workers))

	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = w.HealthCheck(ctx, url, p.opts.ProbeMethod)
		}()
	}
	wg.Wait()
	return results
}

// ProbeRemoteSize asks a randomly chosen worker for the declared size of
// url. It returns ErrSizeUnknown when the server does not declare one.
func (p *Pool) ProbeRemoteSize(ctx context.Context, url string) (int64, error) {
	p.mu.RLock()
	n := len(p.workers)
	if n == 0 {
		p.mu.RUnlock()
		return 0, ErrNoWorkers
	}
	w := p.workers[p.opts.Select(n)]
	p.mu.RUnlock()

	info, err := w.transport.Head(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("head %s via %s: %w", url, w.Name(), err)
	}
	if info.Size < 0 {
		return 0, fmt.Errorf("%w: %s", ErrSizeUnknown, url)
	}
	return info.Size, nil
}

// Submit queues a download of url to path and wakes every worker. With
// PrecacheSize the remote size is probed first and a failed probe rejects
// the submission without queuing anything.
func (p *Pool) Submit(ctx context.Context, url, path string) (*Item, error) {
	var size int64
	if p.opts.PrecacheSize {
		n, err := p.ProbeRemoteSize(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("precache size: %w", err)
		}
		size = n
	}

	it, err := newItem(url, path, size)
	if err != nil {
		return nil, err
	}

	// Enqueue before waking so a worker about to go idle sees the item.
	p.stats.declared.Add(size)
	if err := p.enqueue(it); err != nil {
		p.stats.declared.Add(-size)
		return nil, err
	}
	p.wakeAll()
	return it, nil
}

func (p *Pool) enqueue(it *Item) error {
	if p.opts.Policy != PolicyLeastLoaded {
		p.queue.push(it)
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.workers) == 0 {
		return ErrNoWorkers
	}
	best, bestLoad := p.workers[0], p.workers[0].remaining()
	for _, w := range p.workers[1:] {
		if load := w.remaining(); load < bestLoad {
			best, bestLoad = w, load
		}
	}
	best.queue.push(it)
	return nil
}

// remaining returns the declared bytes this worker still has to transfer.
func (w *Worker) remaining() int64 {
	w.queue.mu.Lock()
	defer w.queue.mu.Unlock()
	n := w.queue.bytesLocked()
	if it := w.current.Load(); it != nil {
		if left := it.Size() - w.transferred.Load(); left > 0 {
			n += left
		}
	}
	return n
}

func (p *Pool) wakeAll() {
	for _, w := range p.Workers() {
		w.WakeUp()
	}
}

// Len returns the number of items waiting in queues.
func (p *Pool) Len() int {
	if p.opts.Policy != PolicyLeastLoaded {
		return p.queue.len()
	}
	n := 0
	for _, w := range p.Workers() {
		n += w.queue.len()
	}
	return n
}

// IsBusy reports whether any worker, including a removed one that is still
// draining, is running a drain loop.
func (p *Pool) IsBusy() bool {
	for _, w := range append(p.Workers(), p.draining()...) {
		if w.Busy() {
			return true
		}
	}
	return false
}

// AwaitAll blocks until no worker is draining, removed workers included.
// Loops started by
// submissions made while waiting are waited for as well. Only ctx can end
// the wait early.
func (p *Pool) AwaitAll(ctx context.Context) error {
	for {
		busy := false
		for _, w := range append(p.Workers(), p.draining()...) {
			if !w.Busy() {
				continue
			}
			busy = true
			if err := w.Wait(ctx); err != nil {
				return err
			}
		}
		if !busy {
			return nil
		}
	}
}

// Snapshot computes the current progress of the whole pool.
func (p *Pool) Snapshot() Snapshot {
	workers := p.Workers()
	removed := p.draining()
	s := Snapshot{
		FilesPerWorker: make([]int, len(workers)),
		Workers:        make([]WorkerProgress, len(workers)),
	}

	if p.opts.Policy == PolicyLeastLoaded {
		for i, w := range workers {
			w.queue.mu.Lock()
			s.addWorker(i, w, len(w.queue.items), w.queue.bytesLocked())
			w.queue.mu.Unlock()
		}
		for _, w := range removed {
			w.queue.mu.Lock()
			s.addRemoved(w)
			w.queue.mu.Unlock()
		}
	} else {
		p.queue.mu.Lock()
		s.TotalFiles = len(p.queue.items)
		s.PendingBytes = p.queue.bytesLocked()
		for i, w := range workers {
			s.addWorker(i, w, 0, 0)
		}
		for _, w := range removed {
			s.addRemoved(w)
		}
		s.addTotals(&p.stats)
		p.queue.mu.Unlock()
		return s
	}

	s.addTotals(&p.stats)
	return s
}

func (p *Pool) String() string {
	return p.Snapshot().String()
}
