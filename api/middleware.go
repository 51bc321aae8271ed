package api

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/llm"
)

const (
	localUserID    = "user_id"
	localRequestID = "request_id"

	requestIDHeader = "X-Request-Id"
)

// requestID assigns every request an ID, honoring one supplied by the
// client, and echoes it back on the response.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(requestIDHeader))
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Locals(localRequestID, id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

// countRequests records the per-route request counter after the handler ran.
func (s *Server) countRequests(c *fiber.Ctx) error {
	err := c.Next()
	if s.deps.Metrics != nil {
		s.deps.Metrics.Requests.WithLabelValues(
			c.Route().Path,
			strconv.Itoa(c.Response().StatusCode()),
		).Inc()
	}
	return err
}

// requireAuth gates a route on a valid Bearer token, storing the token's
// user ID for downstream handlers.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).
			JSON(llm.NewErrorResponse(codeUnauthorized, "missing bearer token"))
	}

	userID, err := s.deps.Tokens.Verify(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).
			JSON(llm.NewErrorResponse(codeUnauthorized, "invalid or expired token"))
	}

	c.Locals(localUserID, userID)
	return c.Next()
}

// admission charges one token from the class bucket for the caller's
// identity, denying with 429 and a Retry-After hint when the bucket is dry.
func (s *Server) admission(class string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.config.RateLimitEnabled {
			return c.Next()
		}

		identity := clientIdentity(c)
		decision := s.deps.Limiter.TryConsume(class, identity, 1)
		if decision.Allowed {
			return c.Next()
		}

		if s.deps.Metrics != nil {
			s.deps.Metrics.AdmissionDenied.WithLabelValues(class).Inc()
		}
		s.logger.Debug("request denied by rate limiter",
			zap.String("class", class),
			zap.String("identity", identity),
			zap.Duration("retry_after", decision.RetryAfter),
		)

		seconds := int64(math.Ceil(decision.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(seconds, 10))
		return c.Status(fiber.StatusTooManyRequests).
			JSON(llm.NewErrorResponse(codeRateLimited, "rate limit exceeded, retry later"))
	}
}

// clientIdentity is the rate-limit key: the authenticated user when there is
// one, the remote address otherwise.
func clientIdentity(c *fiber.Ctx) string {
	if userID, ok := c.Locals(localUserID).(string); ok && userID != "" {
		return userID
	}
	return c.IP()
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func zapRequestID(c *fiber.Ctx) zap.Field {
	return zap.String("request_id", requestIDFrom(c))
}
