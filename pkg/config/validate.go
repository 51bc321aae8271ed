package config

import (
	"errors"
	"fmt"
)

const minProductionSecretLength = 32

// ValidateProduction refuses configurations that must never reach a
// production deployment. It is a no-op outside the production environment.
func ValidateProduction(cfg *Config) error {
	if cfg.Env != EnvProduction {
		return nil
	}

	if cfg.Auth.JWTSecret == DefaultJWTSecret {
		return errors.New("auth.jwt_secret is the built-in development secret; set a real one")
	}
	if len(cfg.Auth.JWTSecret) < minProductionSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters in production", minProductionSecretLength)
	}

	return nil
}
