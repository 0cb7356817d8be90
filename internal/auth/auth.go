// Package auth verifies that an inbound alert is legitimate before any order
// handling happens.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"

	"github.com/Girro24/sol-vic-gateway/internal/config"
)

// Method identifies which mechanism authorized a request.
type Method string

const (
	// MethodHeaderSignature is the X-Signature hex HMAC over the raw body.
	MethodHeaderSignature Method = "header-signature"
	// MethodInlineKey is the shared key carried inside the JSON payload.
	MethodInlineKey Method = "inline-key"
	// MethodNone means no mechanism authorized the request.
	MethodNone Method = "none"
)

// Verifier checks inbound alerts against the configured secret and/or key.
// With nothing configured it rejects everything; an unconfigured gateway
// must fail closed, never open.
type Verifier struct {
	secret []byte
	key    []byte
	policy config.AuthPolicy
}

// NewVerifier builds a verifier from the static webhook credentials.
func NewVerifier(secret, key string, policy config.AuthPolicy) *Verifier {
	return &Verifier{secret: []byte(secret), key: []byte(key), policy: policy}
}

// Verify reports whether the request is authorized and which mechanism
// decided it. body must be the raw, unparsed request bytes: re-serializing a
// parse is not guaranteed to reproduce identical output and would break
// legitimate signatures. sigHeader is the X-Signature value, empty if absent.
func (v *Verifier) Verify(body []byte, sigHeader string) (bool, Method) {
	sigConfigured := len(v.secret) > 0
	keyConfigured := len(v.key) > 0
	if !sigConfigured && !keyConfigured {
		return false, MethodNone
	}

	sigOK := sigConfigured && v.verifySignature(body, sigHeader)
	keyOK := keyConfigured && v.verifyInlineKey(body)

	if v.policy == config.PolicyAll {
		sigPass := !sigConfigured || sigOK
		keyPass := !keyConfigured || keyOK
		if sigPass && keyPass {
			if sigOK {
				return true, MethodHeaderSignature
			}
			return true, MethodInlineKey
		}
		return false, MethodNone
	}

	// Default policy: either configured mechanism may authorize on its own.
	// The signature is tried first so callers that can set headers get the
	// stronger check attributed in logs.
	if sigOK {
		return true, MethodHeaderSignature
	}
	if keyOK {
		return true, MethodInlineKey
	}
	return false, MethodNone
}

func (v *Verifier) verifySignature(body []byte, sigHeader string) bool {
	if sigHeader == "" {
		return false
	}
	supplied, err := hex.DecodeString(sigHeader)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), supplied)
}

func (v *Verifier) verifyInlineKey(body []byte) bool {
	var payload struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	if payload.Key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(payload.Key), v.key) == 1
}
