package pool

import "sync"

// queue is a mutex-guarded FIFO of items. Workers hold mu while moving the
// head item into their current slot so that progress snapshots never see an
// item in both places or in neither.
type queue struct {
	mu    sync.Mutex
	items []*Item
}

func newQueue() *queue {
	return &queue{}
}

func (q *queue) push(it *Item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
}

// popLocked removes the head item. q.mu must be held.
func (q *queue) popLocked() *Item {
	if len(q.items) == 0 {
		return nil
	}
	it := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return it
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// bytesLocked sums declared sizes. q.mu must be held.
func (q *queue) bytesLocked() int64 {
	var n int64
	for _, it := range q.items {
		n += it.Size()
	}
	return n
}

// takeAll empties the queue and returns its items in order.
func (q *queue) takeAll() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
