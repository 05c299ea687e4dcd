package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSaltIsFreshAndDecodable(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, 16)
}

func TestHashPasswordMatchesConstruction(t *testing.T) {
	salt := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))
	got, err := HashPassword("secret", salt)
	require.NoError(t, err)

	h := sha256.New()
	h.Write([]byte("0123456789abcdef"))
	h.Write([]byte("secret"))
	want := base64.StdEncoding.EncodeToString(h.Sum(nil))
	require.Equal(t, want, got)
}

func TestVerifyPasswordRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	hash, err := HashPassword("correct horse", salt)
	require.NoError(t, err)

	require.True(t, VerifyPassword("correct horse", hash, salt))
	require.False(t, VerifyPassword("wrong horse", hash, salt))
	require.False(t, VerifyPassword("correct horse", hash, salt+"x"))
}

func TestSameSaltSamePasswordIsDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	h1, err := HashPassword("pw", salt)
	require.NoError(t, err)
	h2, err := HashPassword("pw", salt)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}
