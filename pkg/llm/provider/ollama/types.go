// Package ollama implements the provider interface against an Ollama
// backend: GET /api/tags for models and POST /api/chat for NDJSON-streamed
// chat completions.
package ollama

import "time"

// ollamaChatRequest is Ollama's /api/chat request format.
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ollamaChatChunk is a single NDJSON line of a streamed /api/chat response.
type ollamaChatChunk struct {
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
}

// ollamaTags is the /api/tags response shape.
type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
