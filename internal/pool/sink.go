package pool

import (
	"context"
	"io"
	"os"

	"gocloud.dev/blob"
)

// Sink opens download destinations. Create must truncate any previous
// content; partial downloads are never resumed.
type Sink interface {
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// FileSink writes to the local filesystem.
type FileSink struct{}

func (FileSink) Create(_ context.Context, path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// BucketSink writes to object storage. Paths are object keys.
type BucketSink struct {
	Bucket *blob.Bucket
}

func (s BucketSink) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	return s.Bucket.NewWriter(ctx, path, nil)
}
