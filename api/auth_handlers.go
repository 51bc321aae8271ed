package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/auth"
	"github.com/papercomputeco/modelgate/pkg/llm"
	"github.com/papercomputeco/modelgate/pkg/storage"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, llm.Invalid("request body is not valid JSON"))
	}

	if err := auth.ValidateEmail(req.Email); err != nil {
		return s.respondError(c, err)
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return s.respondError(c, err)
	}

	hash, err := auth.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return s.respondError(c, err)
	}

	user := &storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.deps.Users.CreateUser(c.Context(), user); err != nil {
		return s.respondError(c, err)
	}

	s.logger.Info("user registered",
		zapRequestID(c),
		zap.String("user_id", user.ID),
	)

	return c.Status(fiber.StatusCreated).JSON(signupResponse{
		ID:    user.ID,
		Email: user.Email,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, llm.Invalid("request body is not valid JSON"))
	}

	user, err := s.deps.Users.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.invalidCredentials(c)
		}
		return s.respondError(c, err)
	}

	ok, needsRehash := auth.VerifyPassword(req.Password, user.PasswordHash, s.config.BcryptCost)
	if !ok {
		return s.invalidCredentials(c)
	}

	// Transparently upgrade hashes whose cost no longer matches the
	// configuration. Login still succeeds if the upgrade fails.
	if needsRehash {
		if newHash, err := auth.HashPassword(req.Password, s.config.BcryptCost); err == nil {
			if err := s.deps.Users.UpdatePassword(c.Context(), user.ID, newHash); err != nil {
				s.logger.Warn("failed to upgrade password hash",
					zap.String("user_id", user.ID),
					zap.Error(err),
				)
			}
		}
	}

	token, err := s.deps.Tokens.Issue(user.ID)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.deps.Tokens.TTL().Seconds()),
	})
}

// invalidCredentials is deliberately identical for unknown emails and wrong
// passwords so login cannot be used to probe registered addresses.
func (s *Server) invalidCredentials(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).
		JSON(llm.NewErrorResponse(codeInvalidCredentials, "invalid email or password"))
}
