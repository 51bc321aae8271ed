package api

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/eventstream"
	"github.com/papercomputeco/modelgate/pkg/llm"
)

const healthCheckTimeout = 5 * time.Second

// handleHealth reports whether the gateway can actually serve: the
// upstream provider answers and the user store responds.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
	defer cancel()

	if _, err := s.deps.Users.Count(ctx); err != nil {
		s.logger.Warn("health: user store unavailable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"status": "degraded", "reason": "storage"})
	}

	if _, err := s.deps.Provider.ListModels(ctx); err != nil {
		s.logger.Warn("health: upstream unavailable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"status": "degraded", "reason": "upstream"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// handleReadiness only answers that the process is up; orchestrators use
// it as the cheap liveness probe while /health does the dependency checks.
func (s *Server) handleReadiness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ready"})
}

func (s *Server) handleListModels(c *fiber.Ctx) error {
	models, err := s.deps.Provider.ListModels(c.Context())
	if err != nil {
		return s.respondError(c, err)
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return c.JSON(fiber.Map{"models": names})
}

// handleChat is the buffered chat path: the full upstream stream is collected
// and returned as a JSON array of chunks. Partial output from a failed
// upstream call is discarded, never returned.
func (s *Server) handleChat(c *fiber.Ctx) error {
	req, err := parseChatRequest(c)
	if err != nil {
		return s.respondError(c, err)
	}

	started := time.Now()
	chunks, err := s.deps.Provider.Chat(c.Context(), req)
	if err != nil {
		s.publishChatEvent(c, req.Model, false, 0, started, "failed")
		return s.respondError(c, err)
	}

	model := req.Model
	for _, chunk := range chunks {
		if chunk.Model != "" {
			model = chunk.Model
		}
	}

	s.publishChatEvent(c, model, false, len(chunks), started, "completed")

	return c.JSON(chunks)
}

// handleChatStream relays upstream chunks to the client as SSE events. The
// relay runs detached from the handler because fasthttp recycles its
// RequestCtx after the handler returns while the body stream is still being
// written.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	req, err := parseChatRequest(c)
	if err != nil {
		return s.respondError(c, err)
	}

	stream, err := s.deps.Provider.ChatStream(c.Context(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	requestID := requestIDFrom(c)
	identity := clientIdentity(c)
	model := req.Model
	started := time.Now()

	// io.Pipe rather than SetBodyStreamWriter: pw.Write blocks until
	// fasthttp's chunked writer has flushed to the socket, which gives the
	// relay real per-chunk delivery and backpressure.
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()

		sess := s.deps.Relay.Run(context.Background(), requestID, stream, newSSESink(pw))

		if s.deps.Metrics != nil {
			s.deps.Metrics.StreamChunks.Add(float64(sess.Chunks))
		}
		s.publishChatEventDetached(requestID, identity, model, true, sess.Chunks, started, sess.State.String())
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

func parseChatRequest(c *fiber.Ctx) (*llm.ChatRequest, error) {
	req := &llm.ChatRequest{}
	if err := c.BodyParser(req); err != nil {
		return nil, llm.Invalid("request body is not valid JSON")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) publishChatEvent(c *fiber.Ctx, model string, streaming bool, chunks int, started time.Time, outcome string) {
	s.publishChatEventDetached(requestIDFrom(c), clientIdentity(c), model, streaming, chunks, started, outcome)
}

// publishChatEventDetached emits the terminal chat event on its own timeout
// so a slow broker cannot stall request handling.
func (s *Server) publishChatEventDetached(requestID, identity, model string, streaming bool, chunks int, started time.Time, outcome string) {
	event := &eventstream.ChatCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeChatCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		RequestID:     requestID,
		Identity:      identity,
		Model:         model,
		Streaming:     streaming,
		ChunkCount:    chunks,
		DurationMs:    time.Since(started).Milliseconds(),
		Outcome:       outcome,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Events.PublishChat(ctx, event); err != nil {
		s.logger.Warn("failed to publish chat event",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}
