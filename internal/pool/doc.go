// Package pool distributes file downloads over a set of forward proxies.
//
// Each proxy is served by one Worker that owns its own HTTP transport. All
// workers drain a shared FIFO queue; submitting a download appends to the
// queue and wakes every worker. A worker that is already draining ignores
// the wake-up and an idle one starts a drain loop, so there is never more
// than one loop per worker. Removing an item from the head of the queue is
// the only operation serialized across workers.
//
// # Usage
//
//	p, err := pool.New(pool.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	if _, err := p.AddProxy(ctx, "http://10.0.0.1:3128", nil); err != nil {
//	    return err
//	}
//	if _, err := p.Submit(ctx, "https://example.com/a.bin", "/tmp/a.bin"); err != nil {
//	    return err
//	}
//	err = p.AwaitAll(ctx)
//
// # Assignment
//
// PolicyShared (the default) lets whichever worker is draining take the
// next item. PolicyLeastLoaded gives every worker its own queue and places
// each item on the worker with the fewest remaining declared bytes.
//
// # Failures
//
// Transfers are never retried. A failed transfer ends the worker's drain
// loop; the item is dropped and the worker stays idle until the next
// submission wakes it. Other workers are not affected. The error is
// available from Worker.Err and Hooks.OnError.
//
// # Progress
//
// Snapshot aggregates queue and worker state on every call. A worker's
// byte counter only covers the item it is transferring and is reset to zero
// once that item completes.
package pool
