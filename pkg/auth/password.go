package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes raw with bcrypt at the given cost. A cost outside
// bcrypt's supported range falls back to the library default.
func HashPassword(raw string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks raw against a stored bcrypt hash. needsRehash is true
// when the match succeeded but the hash was produced at a different cost than
// currently configured, so the caller can transparently upgrade it.
func VerifyPassword(raw, hash string, cost int) (ok, needsRehash bool) {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) != nil {
		return false, false
	}

	stored, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true, true
	}
	return true, stored != cost
}
