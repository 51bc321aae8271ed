package api

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/papercomputeco/modelgate/pkg/llm"
)

// sseSink writes relay output as server-sent events. Writes block until the
// transport has flushed the previous event, which is what propagates client
// backpressure up into the relay.
type sseSink struct {
	w io.Writer
}

func newSSESink(w io.Writer) *sseSink {
	return &sseSink{w: w}
}

// Send emits one "chunk" event.
func (s *sseSink) Send(chunk *llm.ChatChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encoding chunk: %w", err)
	}
	_, err = fmt.Fprintf(s.w, "event: chunk\ndata: %s\n\n", payload)
	return err
}

// SendError emits a terminal "error" event carrying the standard error
// envelope.
func (s *sseSink) SendError(sendErr error) error {
	_, code, message := classify(sendErr)
	payload, err := json.Marshal(llm.NewErrorResponse(code, message))
	if err != nil {
		return fmt.Errorf("encoding error event: %w", err)
	}
	_, err = fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", payload)
	return err
}
