package llm

import "errors"

// Upstream error taxonomy. Providers wrap these sentinels so callers can
// distinguish "backend down" from "backend slow" from "backend broken"
// without depending on a concrete provider.
var (
	// ErrUpstreamUnavailable indicates the backend could not be reached or
	// the connection was lost mid-call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout indicates no progress within the configured deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamProtocol indicates the backend responded in an unparseable
	// or unexpected shape, including streams that end before a terminal chunk.
	ErrUpstreamProtocol = errors.New("upstream protocol error")
)

// ValidationError reports a malformed request. It is always produced before
// any upstream call is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrorResponse is the JSON error envelope returned by the API.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code alongside a
// human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse builds an ErrorResponse from a code and message.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
