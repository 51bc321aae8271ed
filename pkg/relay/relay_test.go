package relay

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/llm"
)

// scriptStream plays back a fixed sequence of pulls.
type scriptStream struct {
	pulls []scriptPull
	pos   int

	closed bool

	// delay stalls every Next call, to exercise deadlines.
	delay time.Duration
}

type scriptPull struct {
	chunk *llm.ChatChunk
	err   error
}

func (s *scriptStream) Next(ctx context.Context) (*llm.ChatChunk, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.pos >= len(s.pulls) {
		return nil, io.EOF
	}
	p := s.pulls[s.pos]
	s.pos++
	return p.chunk, p.err
}

func (s *scriptStream) Close() error {
	s.closed = true
	return nil
}

// recordSink captures everything the relay sends.
type recordSink struct {
	chunks []llm.ChatChunk
	errs   []error

	// failAfter makes Send fail once that many chunks were accepted.
	failAfter int
	sendErr   error
}

func (r *recordSink) Send(chunk *llm.ChatChunk) error {
	if r.sendErr != nil && len(r.chunks) >= r.failAfter {
		return r.sendErr
	}
	r.chunks = append(r.chunks, *chunk)
	return nil
}

func (r *recordSink) SendError(err error) error {
	r.errs = append(r.errs, err)
	return nil
}

func chunks(pieces ...string) []scriptPull {
	out := make([]scriptPull, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, scriptPull{chunk: &llm.ChatChunk{
			Model:   "m",
			Content: p,
			Done:    i == len(pieces)-1,
		}})
	}
	return out
}

func newTestRelay(config Config) *Relay {
	return New(config, zap.NewNop())
}

func TestRunRelaysAllChunksInOrder(t *testing.T) {
	stream := &scriptStream{pulls: chunks("a", "b", "")}
	sink := &recordSink{}

	sess := newTestRelay(Config{}).Run(context.Background(), "req-1", stream, sink)

	assert.Equal(t, StateCompleted, sess.State)
	assert.Equal(t, 3, sess.Chunks)
	require.Len(t, sink.chunks, 3)
	assert.Equal(t, "a", sink.chunks[0].Content)
	assert.Equal(t, "b", sink.chunks[1].Content)
	assert.True(t, sink.chunks[2].Done)
	assert.Empty(t, sink.errs)
	assert.True(t, stream.closed)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := &scriptStream{pulls: chunks("a", ""), delay: time.Millisecond}
	sink := &recordSink{}

	sess := newTestRelay(Config{}).Run(ctx, "req-1", stream, sink)

	// No chunk or error event reaches the client after cancellation.
	assert.Equal(t, StateCancelled, sess.State)
	assert.Empty(t, sink.chunks)
	assert.Empty(t, sink.errs)
	assert.True(t, stream.closed)
}

func TestRunFailsOnInterChunkTimeout(t *testing.T) {
	stream := &scriptStream{pulls: chunks("a", "b", ""), delay: time.Second}
	sink := &recordSink{}

	r := newTestRelay(Config{InterChunkTimeout: 20 * time.Millisecond})
	sess := r.Run(context.Background(), "req-1", stream, sink)

	assert.Equal(t, StateFailed, sess.State)
	require.ErrorIs(t, sess.Err, llm.ErrUpstreamTimeout)
	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], llm.ErrUpstreamTimeout)
	assert.True(t, stream.closed)
}

func TestRunFailsOnMaxStreamDuration(t *testing.T) {
	stream := &scriptStream{pulls: chunks("a", "b", "c", "d", ""), delay: 15 * time.Millisecond}
	sink := &recordSink{}

	r := newTestRelay(Config{MaxStreamDuration: 40 * time.Millisecond})
	sess := r.Run(context.Background(), "req-1", stream, sink)

	assert.Equal(t, StateFailed, sess.State)
	assert.ErrorIs(t, sess.Err, llm.ErrUpstreamTimeout)
	assert.Less(t, len(sink.chunks), 5, "stream must be cut short")
	assert.True(t, stream.closed)
}

func TestRunFailsOnTruncatedStream(t *testing.T) {
	// Stream ends without a terminal chunk.
	stream := &scriptStream{pulls: []scriptPull{
		{chunk: &llm.ChatChunk{Model: "m", Content: "a"}},
		{err: io.EOF},
	}}
	sink := &recordSink{}

	sess := newTestRelay(Config{}).Run(context.Background(), "req-1", stream, sink)

	assert.Equal(t, StateFailed, sess.State)
	assert.ErrorIs(t, sess.Err, llm.ErrUpstreamProtocol)
	require.Len(t, sink.chunks, 1)
	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], llm.ErrUpstreamProtocol)
}

func TestRunPropagatesUpstreamErrors(t *testing.T) {
	boom := errors.New("connection reset")
	stream := &scriptStream{pulls: []scriptPull{
		{chunk: &llm.ChatChunk{Model: "m", Content: "a"}},
		{err: boom},
	}}
	sink := &recordSink{}

	sess := newTestRelay(Config{}).Run(context.Background(), "req-1", stream, sink)

	assert.Equal(t, StateFailed, sess.State)
	assert.ErrorIs(t, sess.Err, boom)
	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], boom)
}

func TestRunCancelsWhenClientGoesAway(t *testing.T) {
	stream := &scriptStream{pulls: chunks("a", "b", "c", "")}
	sink := &recordSink{failAfter: 1, sendErr: errors.New("broken pipe")}

	sess := newTestRelay(Config{}).Run(context.Background(), "req-1", stream, sink)

	assert.Equal(t, StateCancelled, sess.State)
	assert.Equal(t, 1, sess.Chunks)
	assert.Len(t, sink.chunks, 1)
	assert.Empty(t, sink.errs, "no error event once the client is gone")
	assert.True(t, stream.closed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
