package transfer

import (
	"context"
	"io"

	"assetsync/internal/core/types"
)

type RWCallback func(n int64)
type RWOption func(*ReaderWriter)

func RWWithWriteLimiter(limiter *types.RateLimiter) RWOption {
	return func(r *ReaderWriter) {
		r.writeLimiter = limiter
	}
}

func RWWithIOWriter(writer io.Writer) RWOption {
	return func(r *ReaderWriter) {
		r.writer = writer
	}
}

func RWWithWriterCallback(callback RWCallback) RWOption {
	return func(r *ReaderWriter) {
		r.writerCallback = callback
	}
}

// ReaderWriter wraps an io.Writer with context cancellation, rate limiting
// and a per-write callback.
//
// The callback runs on the hot path; don't block in it.
type ReaderWriter struct {
	writer         io.Writer
	writeLimiter   *types.RateLimiter
	writerCallback RWCallback
}

// NewReaderWriter creates a new ReaderWriter.
func NewReaderWriter(opts ...RWOption) *ReaderWriter {
	r := &ReaderWriter{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// Writer creates an io.Writer that wraps the underlying writer. Applies
// rate limiting and respects context cancellation. Triggers the callback
// after each write if provided.
func (r ReaderWriter) Writer(ctx context.Context) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
			if r.writeLimiter != nil {
				if err := r.writeLimiter.WaitN(ctx, len(p)); err != nil {
					return 0, err
				}
			}
			n, err := r.writer.Write(p)
			if err == nil && r.writerCallback != nil {
				r.writerCallback(int64(n))
			}
			return n, err
		}
	})
}
