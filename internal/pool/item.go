package pool

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Item describes one pending or in-flight download.
//
// URL and Path never change after creation. Size is 0 while unknown and is
// back-filled either by the size probe at submission or from the response's
// Content-Length by the worker transferring the item.
type Item struct {
	ID   uuid.UUID
	URL  string
	Path string

	size atomic.Int64
}

func newItem(rawURL, path string, size int64) (*Item, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate item id: %w", err)
	}
	it := &Item{ID: id, URL: rawURL, Path: path}
	it.size.Store(size)
	return it, nil
}

// Size returns the declared size in bytes, or 0 when unknown.
func (it *Item) Size() int64 {
	return it.size.Load()
}

func (it *Item) String() string {
	size := "?"
	if n := it.Size(); n != 0 {
		size = strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s -> %s; size: %s", it.URL, it.Path, size)
}
