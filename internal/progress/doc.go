// Package progress renders pool progress for humans.
//
// A Reporter polls a Source (usually a *pool.Pool) at a fixed interval and
// prints completion, transfer speed and ETA. On a terminal each update
// replaces the previous line; otherwise one line is written per update.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    UpdateInterval: time.Second,
//	})
//	opts.Hooks = reporter.Hooks()
//	p, err := pool.New(opts)
//	...
//	reporter.Start(p)
//	defer reporter.Stop()
//
// # Output Format
//
//	[batchproxy] Progress: 45% | 1.1 GiB / 2.5 GiB | Speed: 12 MiB/s | ETA: 1m 58s | Files: 7 pending, 3 completed, 0 failed
//	[batchproxy] Total time: 3m 12s | Average speed: 13 MiB/s
//
// FormatBytes and ParseBytes convert between byte counts and strings such
// as "64KiB" or "1.5 GB". They are used by the config loader for size keys.
package progress
