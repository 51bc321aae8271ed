package llm

import "context"

// ChunkStream is a pull-based, finite sequence of chat chunks produced by a
// streaming provider call. It is not restartable; a new call must be made to
// retry.
//
// Next blocks until the next chunk is available, the sequence ends, or ctx is
// done. After the Done=true chunk or an error, further calls return io.EOF.
// A stream that ends without a terminal chunk yields an error wrapping
// ErrUpstreamProtocol.
//
// Close releases the underlying upstream connection. It is safe to call more
// than once and must be called on every exit path; early termination releases
// the connection within one bounded cleanup step.
type ChunkStream interface {
	Next(ctx context.Context) (*ChatChunk, error)
	Close() error
}
