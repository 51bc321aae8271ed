package llm

import (
	"fmt"
	"unicode"
)

// Validation limits for inbound chat requests. Requests exceeding these are
// rejected before any upstream call is attempted.
const (
	MaxModelNameLength = 100
	MaxMessages        = 64
	MaxContentLength   = 8000
)

// Options carries optional generation parameters passed through to the
// provider. Providers ignore fields they do not understand.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Options  *Options      `json:"options,omitempty"`
}

// Validate checks the request shape against the gateway's limits.
// It returns a *ValidationError describing the first violation found.
func (r *ChatRequest) Validate() error {
	if err := validateModelName(r.Model); err != nil {
		return err
	}

	if len(r.Messages) == 0 {
		return Invalid("messages required")
	}
	if len(r.Messages) > MaxMessages {
		return Invalid("too many messages (max %d)", MaxMessages)
	}

	for i, m := range r.Messages {
		if !ValidRole(m.Role) {
			return Invalid("message %d: unknown role %q", i, m.Role)
		}
		if m.Content == "" {
			return Invalid("message %d: content cannot be empty", i)
		}
		if len(m.Content) > MaxContentLength {
			return Invalid("message %d: content too long (max %d characters)", i, MaxContentLength)
		}
	}

	return nil
}

// validateModelName enforces the model identifier charset. Colons and dots
// are allowed for Ollama-style tags such as "mistral:7b" or "llama3.2".
func validateModelName(model string) error {
	if model == "" {
		return Invalid("model name is required")
	}
	if len(model) > MaxModelNameLength {
		return Invalid("model name too long (max %d characters)", MaxModelNameLength)
	}
	for _, c := range model {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			continue
		}
		switch c {
		case '-', '_', ':', '.':
			continue
		}
		return Invalid("invalid character %q in model name", c)
	}
	return nil
}

// Invalid builds a *ValidationError from a format string.
func Invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
