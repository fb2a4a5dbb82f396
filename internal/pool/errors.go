package pool

import (
	"errors"
	"fmt"
)

// Configuration errors. They are always wrapped in a *ConfigError and are
// reported before any network or disk I/O happens.
var (
	ErrInvalidMethod   = errors.New("pool: probe method must be GET or HEAD")
	ErrInvalidIndex    = errors.New("pool: worker index out of range")
	ErrEmptyUserAgent  = errors.New("pool: empty user agent")
	ErrInvalidProbeURL = errors.New("pool: invalid probe url")
	ErrInvalidAddress  = errors.New("pool: invalid address")
	ErrUnknownPolicy   = errors.New("pool: unknown assignment policy")
	ErrInvalidChunk    = errors.New("pool: chunk size out of range")
)

// Runtime errors.
var (
	// ErrProbeFailed is returned by AddProxy when the health check through the
	// new proxy did not get a response. The worker is not added.
	ErrProbeFailed = errors.New("pool: proxy probe failed")

	// ErrSizeUnknown is returned by ProbeRemoteSize when the server does not
	// declare a Content-Length.
	ErrSizeUnknown = errors.New("pool: remote size unknown")

	// ErrNoWorkers is returned when an operation needs a worker and the pool
	// has none.
	ErrNoWorkers = errors.New("pool: no workers")
)

// ConfigError describes an invalid setting or argument.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}
