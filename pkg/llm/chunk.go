package llm

// ChatChunk is one incremental unit of model output within a streamed
// response. Exactly one chunk in a well-formed stream has Done=true and it
// is always the last chunk; Content may be empty on that final chunk.
type ChatChunk struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// ModelInfo describes a model advertised by an upstream backend.
type ModelInfo struct {
	Name string `json:"name"`
}
