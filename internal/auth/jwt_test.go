package auth

import (
	"testing"
	"time"

	"task-marketplace-api/internal/models"

	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{ID: "u-1", Username: "alice", UserType: models.UserAdmin}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewManager("0123456789abcdef", "issuer", "web", time.Hour)

	token, err := m.GenerateToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.True(t, claims.IsAdmin())
}

func TestValidateToken_Invalid(t *testing.T) {
	m := NewManager("0123456789abcdef", "issuer", "web", time.Hour)

	_, err := m.ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudienceOrSecret(t *testing.T) {
	issuer := NewManager("0123456789abcdef", "issuer", "web", time.Hour)
	token, err := issuer.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = NewManager("0123456789abcdef", "issuer", "mobile", time.Hour).ValidateToken(token)
	require.Error(t, err)

	_, err = NewManager("fedcba9876543210", "issuer", "web", time.Hour).ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	m := NewManager("0123456789abcdef", "issuer", "web", time.Minute)
	start := time.Now()
	m.now = func() time.Time { return start }
	token, err := m.GenerateToken(testUser())
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = m.ValidateToken(token)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	require.True(t, CheckPassword(hash, "s3cret!"))
	require.False(t, CheckPassword(hash, "wrong"))
}
