package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/modelgate/pkg/llm"
)

const defaultTimeout = 30 * time.Second

// Provider talks to an Ollama backend.
type Provider struct {
	base    string
	client  *http.Client
	timeout time.Duration
}

// New creates a Provider for the given base URL. The timeout bounds buffered
// calls and the time to first response headers on streaming calls; the body
// of an established stream is not subject to it.
func New(baseURL string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		base: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
			},
		},
		timeout: timeout,
	}
}

func (p *Provider) Name() string {
	return "ollama"
}

// ListModels fetches the model list from /api/tags.
func (p *Provider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, upstreamErr("listing models", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing models: unexpected status %d: %w", resp.StatusCode, llm.ErrUpstreamProtocol)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", llm.ErrUpstreamProtocol)
	}

	models := make([]llm.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, llm.ModelInfo{Name: m.Name})
	}
	return models, nil
}

// Chat performs a buffered chat call by draining a stream. Partial output is
// discarded on any mid-stream failure.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) ([]llm.ChatChunk, error) {
	stream, err := p.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var out []llm.ChatChunk
	for {
		chunk, err := stream.Next(callCtx)
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, fmt.Errorf("no terminal chunk within %s: %w", p.timeout, llm.ErrUpstreamTimeout)
		case errors.Is(err, io.EOF):
			return nil, fmt.Errorf("stream ended before terminal chunk: %w", llm.ErrUpstreamProtocol)
		default:
			return nil, err
		}

		out = append(out, *chunk)
		if chunk.Done {
			return out, nil
		}
	}
}

// ChatStream starts a streaming chat call against /api/chat.
func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest) (llm.ChunkStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(toOllamaRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	// The stream outlives the HTTP handler that started it, so the upstream
	// request gets its own cancelable context rather than the caller's.
	// Close cancels it, which releases the connection in one step.
	streamCtx, cancel := context.WithCancel(context.Background())

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, p.base+"/api/chat", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, upstreamErr("starting chat stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("chat stream: unexpected status %d (%s): %w",
			resp.StatusCode, strings.TrimSpace(string(respBody)), llm.ErrUpstreamProtocol)
	}

	s := &stream{
		cancel: cancel,
		body:   resp.Body,
		ch:     make(chan pull),
		done:   make(chan struct{}),
	}
	go s.read()

	return s, nil
}

// toOllamaRequest converts the gateway request into Ollama's wire format,
// always asking for a streamed response.
func toOllamaRequest(req *llm.ChatRequest) ollamaChatRequest {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	out := ollamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}

	if o := req.Options; o != nil {
		out.Options = &ollamaOptions{
			Temperature: o.Temperature,
			TopP:        o.TopP,
			TopK:        o.TopK,
			Seed:        o.Seed,
			NumPredict:  o.MaxTokens,
			Stop:        o.Stop,
		}
	}

	return out
}

// upstreamErr classifies a transport-level error from the backend.
func upstreamErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, llm.ErrUpstreamTimeout)
	}
	return fmt.Errorf("%s: %v: %w", op, err, llm.ErrUpstreamUnavailable)
}

// pull is one result handed from the reader goroutine to Next.
type pull struct {
	chunk *llm.ChatChunk
	err   error
}

// stream implements llm.ChunkStream over an NDJSON response body. A single
// reader goroutine owns the body; Next receives from it so that ctx
// cancellation is honored between chunks.
type stream struct {
	cancel    context.CancelFunc
	body      io.ReadCloser
	ch        chan pull
	done      chan struct{}
	closeOnce sync.Once
}

func (s *stream) Next(ctx context.Context) (*llm.ChatChunk, error) {
	select {
	case p, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return p.chunk, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, io.EOF
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.body.Close()
	})
	return nil
}

// read scans NDJSON lines off the response body, converting each into a
// ChatChunk. It exits after the terminal chunk, on error, or once the stream
// is closed.
func (s *stream) read() {
	defer close(s.ch)

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.send(pull{err: fmt.Errorf("decoding stream chunk: %w", llm.ErrUpstreamProtocol)})
			return
		}

		ok := s.send(pull{chunk: &llm.ChatChunk{
			Model:   chunk.Model,
			Content: chunk.Message.Content,
			Done:    chunk.Done,
		}})
		if !ok {
			return
		}

		if chunk.Done {
			return
		}
	}

	// The consumer closing the stream tears down the body; that read error
	// is not an upstream failure.
	select {
	case <-s.done:
		return
	default:
	}

	if err := scanner.Err(); err != nil {
		s.send(pull{err: fmt.Errorf("reading stream: %v: %w", err, llm.ErrUpstreamUnavailable)})
		return
	}

	s.send(pull{err: fmt.Errorf("stream ended before terminal chunk: %w", llm.ErrUpstreamProtocol)})
}

// send hands one pull to the consumer, giving up if the stream is closed.
func (s *stream) send(p pull) bool {
	select {
	case s.ch <- p:
		return true
	case <-s.done:
		return false
	}
}
