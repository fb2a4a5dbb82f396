package pool

// Hooks are optional callbacks for external tracking. They run on the
// worker's goroutine and must not block.
type Hooks struct {
	// OnStart is called after a worker dequeued an item.
	OnStart func(w *Worker, it *Item)

	// OnComplete is called after the item was fully written.
	OnComplete func(w *Worker, it *Item, written int64)

	// OnError is called when the transfer failed. The worker's drain loop
	// stops after this call.
	OnError func(w *Worker, it *Item, err error)
}
