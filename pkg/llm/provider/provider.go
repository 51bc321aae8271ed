// Package provider defines the capability surface an inference backend must
// implement for the gateway. Concrete providers live in subpackages and are
// selected at startup via New; callers depend only on this interface.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/modelgate/pkg/llm"
	"github.com/papercomputeco/modelgate/pkg/llm/provider/ollama"
)

// Provider is the capability set any inference backend must implement.
type Provider interface {
	// Name returns the canonical provider name (e.g., "ollama").
	Name() string

	// ListModels returns the models the backend advertises.
	// Fails with llm.ErrUpstreamUnavailable if the backend cannot be
	// reached and llm.ErrUpstreamProtocol if the response cannot be parsed.
	ListModels(ctx context.Context) ([]llm.ModelInfo, error)

	// Chat performs a buffered chat call, aggregating all streamed output
	// before returning. The request is validated before any upstream call;
	// partial output gathered before a mid-stream failure is discarded.
	Chat(ctx context.Context, req *llm.ChatRequest) ([]llm.ChatChunk, error)

	// ChatStream starts a streaming chat call and returns a pull-based
	// chunk sequence. The sequence terminates on the Done=true chunk or on
	// error; callers must Close it on every exit path.
	ChatStream(ctx context.Context, req *llm.ChatRequest) (llm.ChunkStream, error)
}

// Config carries the settings a concrete provider needs.
type Config struct {
	// BaseURL is the upstream backend base URL.
	BaseURL string

	// Timeout bounds each buffered call and the initial connection of a
	// streaming call.
	Timeout time.Duration
}

// New creates a concrete provider by type name.
// Returns an error if the provider type is not recognized.
func New(providerType string, config Config) (Provider, error) {
	switch providerType {
	case "ollama":
		return ollama.New(config.BaseURL, config.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
}
