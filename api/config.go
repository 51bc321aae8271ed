// Package api provides the HTTP gateway in front of the inference backend:
// authentication, admission control, and buffered or streamed chat relay.
package api

import (
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/auth"
	"github.com/papercomputeco/modelgate/pkg/eventstream"
	"github.com/papercomputeco/modelgate/pkg/llm/provider"
	"github.com/papercomputeco/modelgate/pkg/metrics"
	"github.com/papercomputeco/modelgate/pkg/ratelimit"
	"github.com/papercomputeco/modelgate/pkg/relay"
	"github.com/papercomputeco/modelgate/pkg/storage"
)

// Bucket class names used by the admission middleware.
const (
	ClassChat   = "chat"
	ClassAuth   = "auth"
	ClassModels = "models"
)

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ReadTimeout bounds reading the full request, including the body.
	// Zero means no limit.
	ReadTimeout time.Duration

	// ShutdownTimeout bounds a graceful Shutdown. Zero waits indefinitely.
	ShutdownTimeout time.Duration

	// BcryptCost is the hashing cost for new and rehashed passwords.
	BcryptCost int

	// RateLimitEnabled toggles the admission middleware.
	RateLimitEnabled bool
}

// Deps are the collaborators injected into the server. All are required
// except Metrics, which may be nil to disable instrumentation.
type Deps struct {
	Provider provider.Provider
	Limiter  *ratelimit.Store
	Users    storage.UserStore
	Tokens   *auth.TokenManager
	Events   eventstream.Publisher
	Relay    *relay.Relay
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}
