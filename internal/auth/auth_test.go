package auth

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthome-backend/internal/model"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	user := &model.User{ID: "u1", Role: model.RoleAdmin, RoomID: "r1"}
	raw, issued, err := m.Issue(user)
	require.NoError(t, err)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, "r1", claims.RoomID)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenManager_Rejects(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenManager("other-secret", time.Hour)
	require.NoError(t, err)

	raw, _, err := other.Issue(&model.User{ID: "u1", Role: model.RoleMember})
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid, "wrong signing key")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ID:        "t1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid, "expired")

	_, err = m.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewTokenManager("", time.Hour)
	assert.Error(t, err)
}

func TestPasswordAndAnswer(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("", "hunter22"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, err = HashPassword(strings.Repeat("a", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	_, err = HashPassword(strings.Repeat("a", MaxPasswordLength))
	assert.NoError(t, err)

	_, err = HashAnswer("   ")
	assert.ErrorIs(t, err, ErrInvalidAnswer)
	_, err = HashAnswer(strings.Repeat("x", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	answer, err := HashAnswer("  Fluffy ")
	require.NoError(t, err)
	assert.True(t, CheckAnswer(answer, "fluffy"))
	assert.True(t, CheckAnswer(answer, "FLUFFY"))
	assert.False(t, CheckAnswer(answer, "rex"))
}

func TestRandomValues(t *testing.T) {
	code, err := NewInviteCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), code)

	name, err := NewUsername()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user_[a-z0-9]{6}$`), name)

	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestRevocations(t *testing.T) {
	r := NewRevocations()
	r.Revoke("t1", time.Now().Add(time.Minute))
	r.Revoke("t2", time.Now().Add(-time.Minute))

	assert.True(t, r.Revoked("t1"))
	assert.False(t, r.Revoked("t2"), "already expired tokens are not stored")
	assert.False(t, r.Revoked("t3"))
}
