package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/batchproxy/internal/config"
	"github.com/ligustah/batchproxy/internal/pool"
	"github.com/ligustah/batchproxy/internal/progress"
)

// runFetch adds every proxy to a pool, submits every download and waits for
// the pool to go idle.
func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	var common commonFlags
	common.register(fs)
	var urls listFlag
	fs.Var(&urls, "url", "URL to download, repeatable or comma-separated")
	dir := fs.String("dir", ".", "Destination directory, or key prefix when -bucket is set")
	bucket := fs.String("bucket", "", "Destination bucket URL (file://, s3://, gs://, mem://)")
	precache := fs.Bool("precache", false, "Probe sizes with HEAD before queueing")
	assignment := fs.String("assignment", "", "Assignment policy: shared or least-loaded")
	skipCheck := fs.Bool("skip-health-check", false, "Add proxies without probing them")
	showProgress := fs.Bool("progress", false, "Show progress output")
	interval := fs.Duration("progress-interval", 0, "Progress update interval")
	showWorkers := fs.Bool("workers", false, "Include per-proxy lines in progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: batchproxy fetch [options]

Download files through a pool of forward proxies. Each proxy drains the
shared queue one file at a time. Downloads come from -url flags and the
downloads list of the config file.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	override := config.Config{
		PrecacheSize:     *precache,
		Assignment:       *assignment,
		Bucket:           *bucket,
		Progress:         *showProgress,
		ProgressInterval: *interval,
	}
	for _, u := range urls {
		dest, err := destination(u, *dir, *bucket != "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		override.Downloads = append(override.Downloads, config.Download{URL: u, Path: dest})
	}

	cfg, err := common.load(override)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if *skipCheck {
		cfg.HealthCheckOnAdd = false
	}
	if len(cfg.Downloads) == 0 {
		fmt.Fprintln(os.Stderr, "Error: nothing to download, use -url or the config downloads list")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	return fetch(ctx, cfg, *showWorkers)
}

func fetch(ctx context.Context, cfg config.Config, showWorkers bool) int {
	opts, err := cfg.PoolOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	opts.Logger = newLogger()

	if cfg.Bucket != "" {
		bkt, err := blob.OpenBucket(ctx, cfg.Bucket)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening bucket: %v\n", err)
			return ExitStorageError
		}
		defer bkt.Close()
		opts.Sink = pool.BucketSink{Bucket: bkt}
	}

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			UpdateInterval: cfg.ProgressInterval,
			ShowWorkers:    showWorkers,
		})
		opts.Hooks = reporter.Hooks()
	}

	p, err := pool.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	if n := addProxies(ctx, p, cfg.Proxies); n == 0 {
		fmt.Fprintln(os.Stderr, "Error: no usable proxy")
		return ExitNoProxies
	}

	var rejected int
	for _, d := range cfg.Downloads {
		if _, err := p.Submit(ctx, d.URL, d.Path); err != nil {
			fmt.Fprintf(os.Stderr, "[batchproxy] Skipping %s: %v\n", d.URL, err)
			rejected++
		}
	}

	start := time.Now()
	if reporter != nil {
		reporter.Start(p)
	}
	err = p.AwaitAll(ctx)
	if reporter != nil {
		reporter.Stop()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "[batchproxy] Fetch interrupted, transfers in flight were abandoned")
		return ExitGeneralError
	}

	snap := p.Snapshot()
	fmt.Fprintf(os.Stderr, "[batchproxy] Fetched %s in %s\n",
		progress.FormatBytes(snap.TransferredBytes), time.Since(start).Round(time.Millisecond))

	if snap.FailedFiles > 0 || rejected > 0 || snap.TotalFiles > 0 {
		fmt.Fprintf(os.Stderr, "[batchproxy] %d failed, %d rejected, %d left in queue\n",
			snap.FailedFiles, rejected, snap.TotalFiles)
		return ExitTransferFailed
	}
	return ExitSuccess
}

// addProxies adds every proxy to p and returns how many were accepted.
func addProxies(ctx context.Context, p *pool.Pool, proxies []config.Proxy) int {
	for _, px := range proxies {
		if _, err := p.AddProxy(ctx, px.Address, px.Credentials()); err != nil {
			if errors.Is(err, pool.ErrProbeFailed) {
				fmt.Fprintf(os.Stderr, "[batchproxy] Proxy failed health check: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "[batchproxy] Invalid proxy %s: %v\n", px.Address, err)
			}
		}
	}
	return len(p.Workers())
}

// destination derives the destination of rawURL from its last path segment.
func destination(rawURL, dir string, bucket bool) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive a file name from %q", rawURL)
	}
	if bucket {
		if dir == "." {
			return name, nil
		}
		return path.Join(dir, name), nil
	}
	return filepath.Join(dir, name), nil
}
