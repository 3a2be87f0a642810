package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseTokenPair(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := m.GenerateTokenPair(42)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := m.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, uint64(42), claims.UserID)

	claims, err = m.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, uint64(42), claims.UserID)
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := m.GenerateTokenPair(7)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrWrongTokenType)

	_, err = m.ParseRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, 24*time.Hour)

	pair, err := m.GenerateTokenPair(7)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	issuerA := NewManager("secret-a", 15*time.Minute, 24*time.Hour)
	issuerB := NewManager("secret-b", 15*time.Minute, 24*time.Hour)

	pair, err := issuerA.GenerateTokenPair(7)
	require.NoError(t, err)

	_, err = issuerB.ParseAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}
