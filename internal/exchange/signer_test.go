package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func referenceSign(secret, prehash string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHeadersMatchReferenceVerifier(t *testing.T) {
	s := NewSigner("key-id", "super-secret")
	body := `{"client_order_id":"1-abc","product_id":"SOL-USDC","side":"buy","order_configuration":{"market_market_ioc":{"quote_size":"25.00"}}}`

	headers := s.Headers("1700000000", "POST", "/api/v3/brokerage/orders", body)

	want := referenceSign("super-secret", "1700000000POST/api/v3/brokerage/orders"+body)
	if headers["CB-ACCESS-SIGN"] != want {
		t.Fatalf("signature mismatch: got %s want %s", headers["CB-ACCESS-SIGN"], want)
	}
	if headers["CB-ACCESS-KEY"] != "key-id" {
		t.Fatalf("unexpected access key header %s", headers["CB-ACCESS-KEY"])
	}
	if headers["CB-ACCESS-TIMESTAMP"] != "1700000000" {
		t.Fatalf("unexpected timestamp header %s", headers["CB-ACCESS-TIMESTAMP"])
	}
}

func TestSignatureCoversEveryPrehashComponent(t *testing.T) {
	s := NewSigner("key-id", "super-secret")
	base := s.Headers("1700000000", "POST", "/api/v3/brokerage/orders", `{"a":1}`)["CB-ACCESS-SIGN"]

	mutations := []struct {
		name                          string
		timestamp, method, path, body string
	}{
		{"timestamp", "1700000001", "POST", "/api/v3/brokerage/orders", `{"a":1}`},
		{"method", "1700000000", "GET", "/api/v3/brokerage/orders", `{"a":1}`},
		{"path", "1700000000", "POST", "/api/v3/brokerage/orders/", `{"a":1}`},
		{"body", "1700000000", "POST", "/api/v3/brokerage/orders", `{"a":2}`},
	}
	for _, m := range mutations {
		got := s.Headers(m.timestamp, m.method, m.path, m.body)["CB-ACCESS-SIGN"]
		if got == base {
			t.Fatalf("mutating %s did not change the signature", m.name)
		}
	}
}

func TestWipe(t *testing.T) {
	s := NewSigner("key-id", "super-secret")
	s.Wipe()
	for _, b := range s.secretKey {
		if b != 0 {
			t.Fatalf("secret not wiped")
		}
	}
	var nilSigner *Signer
	nilSigner.Wipe() // must not panic
}
