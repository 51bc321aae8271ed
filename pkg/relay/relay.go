// Package relay adapts a provider chunk stream into a client-facing event
// sink, managing upstream pacing, client disconnect, and deadlines for one
// stream session at a time.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/llm"
)

// State is the lifecycle state of a stream session.
type State int

const (
	StateOpen State = iota
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Sink receives the client-facing side of a relayed stream. Send blocks
// until the client transport has accepted the chunk, which is what paces the
// upstream pull loop; a Send error means the client is gone.
type Sink interface {
	Send(chunk *llm.ChatChunk) error
	SendError(err error) error
}

// Config bounds a relayed stream.
type Config struct {
	// InterChunkTimeout is the inactivity deadline between successive
	// chunks. Zero disables it.
	InterChunkTimeout time.Duration

	// MaxStreamDuration bounds the whole stream. Zero disables it.
	MaxStreamDuration time.Duration
}

// Session is the ephemeral state of one relayed stream. It is owned by the
// single goroutine running the relay and never shared.
type Session struct {
	ID        string
	StartedAt time.Time
	State     State
	Chunks    int

	// Err is the terminal failure when State is StateFailed.
	Err error
}

// Relay forwards provider chunk streams to client sinks.
type Relay struct {
	config Config
	logger *zap.Logger
}

// New creates a Relay.
func New(config Config, logger *zap.Logger) *Relay {
	return &Relay{config: config, logger: logger}
}

// Run pulls chunks from stream and forwards each to sink until the stream
// reaches a terminal state. The stream is always closed before Run returns,
// on every exit path. Cancelling ctx stops the pull loop at the next
// iteration boundary without sending anything further to the client.
//
// Run pulls the next chunk only after sink.Send has accepted the previous
// one; a slow client therefore pauses the upstream pull correspondingly.
func (r *Relay) Run(ctx context.Context, requestID string, stream llm.ChunkStream, sink Sink) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		State:     StateOpen,
	}
	defer stream.Close()

	if r.config.MaxStreamDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.MaxStreamDuration)
		defer cancel()
	}

	for sess.State == StateOpen {
		chunk, err := r.pull(ctx, stream)
		if err != nil {
			r.finish(sess, err, sink)
			break
		}

		if err := sink.Send(chunk); err != nil {
			// Client transport refused the chunk: the client is gone.
			sess.State = StateCancelled
			r.logger.Debug("client went away mid-stream",
				zap.String("request_id", requestID),
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
			break
		}
		sess.Chunks++

		if chunk.Done {
			sess.State = StateCompleted
		}
	}

	r.logger.Info("stream session finished",
		zap.String("request_id", requestID),
		zap.String("session_id", sess.ID),
		zap.String("state", sess.State.String()),
		zap.Int("chunks", sess.Chunks),
		zap.Duration("duration", time.Since(sess.StartedAt)),
	)

	return sess
}

// pull fetches the next chunk, applying the inter-chunk inactivity deadline.
func (r *Relay) pull(ctx context.Context, stream llm.ChunkStream) (*llm.ChatChunk, error) {
	pullCtx := ctx
	if r.config.InterChunkTimeout > 0 {
		var cancel context.CancelFunc
		pullCtx, cancel = context.WithTimeout(ctx, r.config.InterChunkTimeout)
		defer cancel()
	}

	chunk, err := stream.Next(pullCtx)
	if err == nil {
		return chunk, nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return nil, context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("no chunk within deadline: %w", llm.ErrUpstreamTimeout)
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("stream ended before terminal chunk: %w", llm.ErrUpstreamProtocol)
	default:
		return nil, err
	}
}

// finish resolves a failed pull into the session's terminal state, emitting
// a terminal error event to the client when it is still there to see it.
func (r *Relay) finish(sess *Session, err error, sink Sink) {
	if errors.Is(err, context.Canceled) {
		sess.State = StateCancelled
		return
	}

	sess.State = StateFailed
	sess.Err = err
	if sendErr := sink.SendError(err); sendErr != nil {
		r.logger.Debug("client gone before terminal error event",
			zap.String("session_id", sess.ID),
			zap.Error(sendErr),
		)
	}
}
