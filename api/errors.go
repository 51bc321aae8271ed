package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/auth"
	"github.com/papercomputeco/modelgate/pkg/llm"
	"github.com/papercomputeco/modelgate/pkg/storage"
)

// Error codes returned in the JSON error envelope.
const (
	codeValidation          = "validation_error"
	codeRateLimited         = "rate_limited"
	codeUnauthorized        = "unauthorized"
	codeInvalidCredentials  = "invalid_credentials"
	codeDuplicateEmail      = "duplicate_email"
	codeUpstreamTimeout     = "upstream_timeout"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamProtocol    = "upstream_protocol"
	codeInternal            = "internal_error"
)

// respondError maps an error to its HTTP status and JSON envelope. Internal
// details never leak to the client; they are logged instead.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status, code, message := classify(err)

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zapRequestID(c),
			zap.Error(err),
		)
		s.countUpstreamError(code)
	}

	return c.Status(status).JSON(llm.NewErrorResponse(code, message))
}

func classify(err error) (status int, code, message string) {
	var validation *llm.ValidationError
	if errors.As(err, &validation) {
		return fiber.StatusUnprocessableEntity, codeValidation, validation.Reason
	}

	var cred *auth.CredentialError
	if errors.As(err, &cred) {
		return fiber.StatusUnprocessableEntity, codeValidation, cred.Reason
	}

	switch {
	case errors.Is(err, storage.ErrDuplicateEmail):
		return fiber.StatusConflict, codeDuplicateEmail, "email already registered"
	case errors.Is(err, llm.ErrUpstreamTimeout):
		return fiber.StatusGatewayTimeout, codeUpstreamTimeout, "upstream model timed out"
	case errors.Is(err, llm.ErrUpstreamProtocol):
		return fiber.StatusBadGateway, codeUpstreamProtocol, "upstream returned a malformed response"
	case errors.Is(err, llm.ErrUpstreamUnavailable):
		return fiber.StatusBadGateway, codeUpstreamUnavailable, "upstream model is unavailable"
	}

	return fiber.StatusInternalServerError, codeInternal, "internal error"
}

func (s *Server) countUpstreamError(code string) {
	if s.deps.Metrics == nil {
		return
	}
	switch code {
	case codeUpstreamTimeout, codeUpstreamUnavailable, codeUpstreamProtocol:
		s.deps.Metrics.UpstreamErrors.WithLabelValues(code).Inc()
	}
}
