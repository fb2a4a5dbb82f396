package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ligustah/batchproxy/internal/config"
	"github.com/ligustah/batchproxy/internal/pool"
)

// runCheck probes every configured proxy and prints one line per proxy.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)

	var common commonFlags
	common.register(fs)
	method := fs.String("method", "", "Probe method: GET or HEAD")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: batchproxy check [options]

Probe every proxy with a request to the probe URL and report which ones
answer.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := common.load(config.Config{
		Probe: config.ProbeConfig{Method: strings.ToUpper(*method)},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg.HealthCheckOnAdd = false

	opts, err := cfg.PoolOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	opts.Logger = newLogger()

	p, err := pool.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	if addProxies(ctx, p, cfg.Proxies) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no usable proxy")
		return ExitNoProxies
	}

	results := p.CheckAllProxies(ctx, "")
	failed := 0
	for i, ep := range p.Endpoints() {
		status := "OK  "
		if !results[i] {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(os.Stderr, "[batchproxy] %s %s\n", status, ep)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "[batchproxy] %d/%d proxies failed\n", failed, len(results))
		return ExitProxyCheckFailed
	}
	return ExitSuccess
}
