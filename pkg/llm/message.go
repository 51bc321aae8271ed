// Package llm defines the provider-agnostic chat types exchanged between the
// API surface, the admission layer, and the model provider implementations.
package llm

// Message roles recognized by the gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a conversation. Messages are immutable
// once constructed; they are part of a request and never persisted by the
// gateway.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether role is one of the roles the gateway accepts.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
