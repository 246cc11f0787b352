package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	s, err := NewSigner("key", "c2VjcmV0")
	require.NoError(t, err)
	assert.Equal(t, "key", s.Key())

	_, err = NewSigner("", "c2VjcmV0")
	require.Error(t, err)

	_, err = NewSigner("key", "")
	require.Error(t, err)
}

func TestSign(t *testing.T) {
	// Secret is base64("secret"); the signature must be computed over the
	// decoded key bytes.
	s, err := NewSigner("key", base64.StdEncoding.EncodeToString([]byte("secret")))
	require.NoError(t, err)

	sig, err := s.Sign(1700000000000, "info")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret"))
	fmt.Fprintf(mac, "%d+%s", int64(1700000000000), "info")
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, sig)
}

func TestSignDeterministic(t *testing.T) {
	s, err := NewSigner("key", "c2VjcmV0")
	require.NoError(t, err)

	a, err := s.Sign(42, "stream")
	require.NoError(t, err)
	b, err := s.Sign(42, "stream")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := s.Sign(43, "stream")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestAuthHeaders(t *testing.T) {
	s, err := NewSigner("api-key", "c2VjcmV0")
	require.NoError(t, err)

	h := http.Header{}
	err = s.AuthHeaders(h, 1700000000000, "cash/balance")
	require.NoError(t, err)

	assert.Equal(t, "api-key", h.Get(HeaderKey))
	assert.Equal(t, "1700000000000", h.Get(HeaderTimestamp))

	want, err := s.Sign(1700000000000, "cash/balance")
	require.NoError(t, err)
	assert.Equal(t, want, h.Get(HeaderSignature))
}

func TestStreamSignature(t *testing.T) {
	s, err := NewSigner("api-key", "c2VjcmV0")
	require.NoError(t, err)

	sig, err := s.StreamSignature(1700000000000)
	require.NoError(t, err)

	want, err := s.Sign(1700000000000, "stream")
	require.NoError(t, err)
	assert.Equal(t, want, sig)
}
