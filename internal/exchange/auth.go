// Package exchange implements the live brokerage transport: a REST client
// for order submission/cancellation, a WebSocket feed for market data and
// order updates, HMAC request signing, and outbound rate limiting. It is
// the live counterpart to the sim package's CSV-driven matching engine.
package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Credentials holds the API key triplet used to sign trading requests.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Auth signs outbound requests with HMAC-SHA256 over
// "timestamp + method + path [+ body]", keyed by the configured secret.
type Auth struct {
	creds Credentials
}

// NewAuth builds an Auth from credentials sourced from configuration/env.
func NewAuth(creds Credentials) *Auth {
	return &Auth{creds: creds}
}

// HasCredentials reports whether all three credential fields are set.
func (a *Auth) HasCredentials() bool {
	return a.creds.APIKey != "" && a.creds.Secret != "" && a.creds.Passphrase != ""
}

// Headers produces the signed headers for a trading request.
func (a *Auth) Headers(method, path, body string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	sig, err := a.sign(timestamp, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	return map[string]string{
		"X-API-KEY":    a.creds.APIKey,
		"X-PASSPHRASE": a.creds.Passphrase,
		"X-TIMESTAMP":  timestamp,
		"X-SIGNATURE":  sig,
	}, nil
}

// WSAuthPayload returns the credential triplet to present on the
// authenticated WebSocket channel.
func (a *Auth) WSAuthPayload() Credentials {
	return a.creds
}

// sign computes the HMAC-SHA256 signature over
// timestamp + method + path [+ body], base64url-encoded.
func (a *Auth) sign(timestamp, method, path, body string) (string, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}

	var secretBytes []byte
	var err error
	for _, dec := range decoders {
		secretBytes, err = dec.DecodeString(a.creds.Secret)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	message := timestamp + method + path
	if body != "" {
		message += body
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
