package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signer produces Coinbase Advanced Trade request signatures.
// Keys are held as []byte so they can be wiped from memory on shutdown.
type Signer struct {
	accessKey []byte
	secretKey []byte
}

// NewSigner builds a signer from the API credentials.
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{accessKey: []byte(accessKey), secretKey: []byte(secretKey)}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.accessKey)
	wipeSlice(s.secretKey)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Headers returns the auth headers for one request. The prehash is the plain
// concatenation timestamp + method + path + body; path and body must be the
// byte-exact strings that go on the wire, or the venue rejects the request
// with an authentication error rather than a business error.
func (s *Signer) Headers(timestamp, method, path, body string) map[string]string {
	prehash := timestamp + method + path + body
	return map[string]string{
		"CB-ACCESS-KEY":       string(s.accessKey),
		"CB-ACCESS-SIGN":      s.sign(prehash),
		"CB-ACCESS-TIMESTAMP": timestamp,
		"Content-Type":        "application/json",
	}
}

func (s *Signer) sign(prehash string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
