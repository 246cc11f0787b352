// Package auth computes the signed credentials AscendEX expects on both the
// REST surface and the WebSocket auth handshake. Signatures are
// HMAC-SHA256 over "<timestamp>+<path>" keyed with the base64-decoded API
// secret, then base64-encoded.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// RoutePrefix is the fixed API route prefix shared by REST and stream paths.
const RoutePrefix = "api/pro"

// Header names for signed REST requests
const (
	HeaderKey       = "x-auth-key"
	HeaderSignature = "x-auth-signature"
	HeaderTimestamp = "x-auth-timestamp"
)

var errEmptyCredentials = errors.New("auth: empty api key or secret")

// Signer derives per-request signatures from a fixed key pair. It performs
// no validation beyond non-empty checks: credential rejection is the
// exchange's call, observed on the first control message after the auth
// frame is sent.
type Signer struct {
	key    string
	secret string
}

// NewSigner creates a Signer for the given API key pair.
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errEmptyCredentials
	}
	return &Signer{key: apiKey, secret: apiSecret}, nil
}

// Key returns the API key the signer was built with.
func (s *Signer) Key() string { return s.key }

// Sign computes the signature for a timestamp and request path.
// The path is the last portion of the API path, without the route prefix
// and without a leading slash (e.g. "info", "stream", "cash/balance").
func (s *Signer) Sign(timestamp int64, path string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(s.secret)
	if err != nil {
		// Secrets issued by the exchange are base64; fall back to the raw
		// bytes so a key pasted without padding still produces a signature.
		key = []byte(s.secret)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%d+%s", timestamp, path)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// AuthHeaders sets the signed authentication headers on a REST request.
func (s *Signer) AuthHeaders(h http.Header, timestamp int64, path string) error {
	sig, err := s.Sign(timestamp, path)
	if err != nil {
		return err
	}

	h.Set(HeaderKey, s.key)
	h.Set(HeaderSignature, sig)
	h.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))

	return nil
}

// StreamSignature computes the signature sent in the WebSocket auth frame.
// The signed path for the stream handshake is always "stream".
func (s *Signer) StreamSignature(timestamp int64) (string, error) {
	return s.Sign(timestamp, "stream")
}
