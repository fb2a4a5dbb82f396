package pool

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"

	bphttp "github.com/ligustah/batchproxy/internal/http"
)

// Defaults.
const (
	DefaultProbeURL    = "https://google.com/"
	DefaultProbeMethod = http.MethodGet
	DefaultChunkSize   = 4096
	MaxChunkSize       = 64 << 20
)

// Options configures a Pool. Start from DefaultOptions; the zero value
// disables health checks on add.
type Options struct {
	// UserAgent is sent with every request of every worker. Must not be empty.
	UserAgent string

	// HealthCheckOnAdd probes every proxy before AddProxy accepts it.
	// Default: true
	HealthCheckOnAdd bool

	// PrecacheSize probes the remote size in Submit before enqueuing.
	// Default: false
	PrecacheSize bool

	// ProbeURL is the health-check target.
	// Default: DefaultProbeURL
	ProbeURL string

	// ProbeMethod is GET or HEAD.
	// Default: GET
	ProbeMethod string

	// Policy chooses how submitted items are assigned to workers.
	// Default: PolicyShared
	Policy Policy

	// ChunkSize is the copy buffer size used when streaming a body to its
	// destination. Default: 4096
	ChunkSize int

	// Sink opens destinations for writing. Default: FileSink
	Sink Sink

	// NewTransport builds the transport bound to a proxy.
	// Default: an internal/http Client per proxy.
	NewTransport TransportFactory

	// Select picks a worker index in [0, n) for ProbeRemoteSize.
	// Default: uniform pseudo-random.
	Select func(n int) int

	// Hooks receive per-item lifecycle events.
	Hooks Hooks

	// Logger receives pool diagnostics. Default: discard.
	Logger *log.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:        bphttp.DefaultUserAgent,
		HealthCheckOnAdd: true,
		ProbeURL:         DefaultProbeURL,
		ProbeMethod:      DefaultProbeMethod,
		Policy:           PolicyShared,
		ChunkSize:        DefaultChunkSize,
	}
}

// Validate checks the settings that cannot be defaulted.
func (o *Options) Validate() error {
	if o.UserAgent == "" {
		return configError("user_agent", ErrEmptyUserAgent)
	}
	if o.ProbeMethod != "" {
		if err := checkMethod(o.ProbeMethod); err != nil {
			return err
		}
	}
	if o.ProbeURL != "" {
		if err := checkProbeURL(o.ProbeURL); err != nil {
			return err
		}
	}
	if o.ChunkSize < 0 || o.ChunkSize > MaxChunkSize {
		return configError("chunk_size", fmt.Errorf("%w: %d", ErrInvalidChunk, o.ChunkSize))
	}
	switch o.Policy {
	case PolicyShared, PolicyLeastLoaded:
	default:
		return configError("policy", fmt.Errorf("%w: %d", ErrUnknownPolicy, o.Policy))
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.ProbeURL == "" {
		o.ProbeURL = DefaultProbeURL
	}
	if o.ProbeMethod == "" {
		o.ProbeMethod = DefaultProbeMethod
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Sink == nil {
		o.Sink = FileSink{}
	}
	if o.NewTransport == nil {
		o.NewTransport = DefaultTransport
	}
	if o.Select == nil {
		o.Select = rand.IntN
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
}

func checkMethod(method string) error {
	switch method {
	case http.MethodGet, http.MethodHead:
		return nil
	default:
		return configError("method", fmt.Errorf("%w: %q", ErrInvalidMethod, method))
	}
}

func checkProbeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return configError("probe_url", fmt.Errorf("%w: %q", ErrInvalidProbeURL, raw))
	}
	return nil
}
