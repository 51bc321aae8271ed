package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret-0123456789abcdef0123456789", "modelgate", time.Hour)

	token, err := m.Issue("user-42")
	require.NoError(t, err)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a := NewTokenManager("secret-a-0123456789abcdef0123456789ab", "modelgate", time.Hour)
	b := NewTokenManager("secret-b-0123456789abcdef0123456789ab", "modelgate", time.Hour)

	token, err := a.Issue("user-42")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret-0123456789abcdef0123456789", "modelgate", -time.Minute)

	token, err := m.Issue("user-42")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	other := NewTokenManager("test-secret-0123456789abcdef0123456789", "someone-else", time.Hour)
	m := NewTokenManager("test-secret-0123456789abcdef0123456789", "modelgate", time.Hour)

	token, err := other.Issue("user-42")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret-0123456789abcdef0123456789", "modelgate", time.Hour)

	_, err := m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	ok, needsRehash := VerifyPassword("hunter2hunter2", hash, bcrypt.MinCost)
	assert.True(t, ok)
	assert.False(t, needsRehash)

	ok, _ = VerifyPassword("wrong-password", hash, bcrypt.MinCost)
	assert.False(t, ok)
}

func TestVerifyPasswordFlagsCostChange(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	ok, needsRehash := VerifyPassword("hunter2hunter2", hash, bcrypt.MinCost+1)
	assert.True(t, ok)
	assert.True(t, needsRehash, "cost drift should trigger a rehash")
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("no-at-sign"))
	assert.Error(t, ValidateEmail("two@@example.com"))
	assert.Error(t, ValidateEmail("spaces in@example.com"))

	long := strings.Repeat("a", MaxEmailLength) + "@example.com"
	assert.Error(t, ValidateEmail(long))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcdefg1"))
	assert.Error(t, ValidatePassword("short1"), "below minimum length")
	assert.Error(t, ValidatePassword(strings.Repeat("a1", 70)), "above maximum length")
	assert.Error(t, ValidatePassword("lettersonly"), "missing digit")
	assert.Error(t, ValidatePassword("12345678"), "missing letter")

	var credErr *CredentialError
	err := ValidatePassword("short1")
	require.ErrorAs(t, err, &credErr)
	assert.Contains(t, credErr.Reason, "at least 8")
}
