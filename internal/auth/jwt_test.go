package auth

import (
	"testing"
	"time"

	"branchops-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndParseToken(t *testing.T) {
	user := &models.User{ID: "11111111-2222-3333-4444-555555555555", Email: "a@corp.test"}

	token, err := GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.NotEmpty(t, claims.ID, "token needs a jti for revocation")
}

func TestParseToken_WrongSecret(t *testing.T) {
	user := &models.User{ID: "u-1", Email: "a@corp.test"}
	token, err := GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("another-secret-that-is-long-enough", token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	user := &models.User{ID: "u-1", Email: "a@corp.test"}
	token, err := GenerateToken(testSecret, user, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken(testSecret, "not.a.token")
	assert.Error(t, err)
}

func TestTokenIDsAreUnique(t *testing.T) {
	user := &models.User{ID: "u-1", Email: "a@corp.test"}

	t1, err := GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)
	t2, err := GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	c1, err := ParseToken(testSecret, t1)
	require.NoError(t, err)
	c2, err := ParseToken(testSecret, t2)
	require.NoError(t, err)

	assert.NotEqual(t, c1.ID, c2.ID, "revoking one session must not revoke the other")
}
