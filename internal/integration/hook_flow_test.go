package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Girro24/sol-vic-gateway/internal/config"
	"github.com/Girro24/sol-vic-gateway/internal/exchange"
	"github.com/Girro24/sol-vic-gateway/internal/server"
)

// End-to-end: a signed webhook alert flows through auth, normalization, and
// the real Coinbase adapter against a fake venue, and the venue-side
// signature checks out over the bytes it received.
func TestHookFlowPlacesSignedOrder(t *testing.T) {
	type received struct {
		body   []byte
		header http.Header
		path   string
	}
	got := make(chan received, 1)
	venue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, header: r.Header.Clone(), path: r.URL.Path}
		_, _ = w.Write([]byte(`{"success":true,"order_id":"ord-e2e"}`))
	}))
	defer venue.Close()

	cfg := &config.Config{
		WebhookSecret:   "hook-secret",
		AuthPolicy:      config.PolicyAny,
		Exchange:        "coinbase",
		CoinbaseAPIKey:  "key-id",
		CoinbaseSecret:  "api-secret",
		CoinbaseBaseURL: venue.URL,
		Symbol:          "SOL-USDC",
		DefaultUSD:      20,
		ListenAddr:      ":8080",
	}

	dispatcher, err := exchange.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("exchange.New returned error: %v", err)
	}
	gateway := httptest.NewServer(server.New(cfg, dispatcher, zerolog.Nop()).Handler())
	defer gateway.Close()

	alert := []byte(`{"action":"sell","symbol":"SOL-USDC","usd":42.5,"reason":"trend flip"}`)
	mac := hmac.New(sha256.New, []byte("hook-secret"))
	mac.Write(alert)

	req, _ := http.NewRequest(http.MethodPost, gateway.URL+"/hook", bytes.NewReader(alert))
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("hook request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hook returned %d: %s", resp.StatusCode, respBody)
	}
	if !strings.Contains(string(respBody), "ord-e2e") {
		t.Fatalf("response missing upstream order: %s", respBody)
	}

	venueReq := <-got
	if venueReq.path != "/api/v3/brokerage/orders" {
		t.Fatalf("unexpected venue path %s", venueReq.path)
	}

	venueMAC := hmac.New(sha256.New, []byte("api-secret"))
	venueMAC.Write([]byte(venueReq.header.Get("CB-ACCESS-TIMESTAMP") + http.MethodPost + venueReq.path + string(venueReq.body)))
	if want := base64.StdEncoding.EncodeToString(venueMAC.Sum(nil)); venueReq.header.Get("CB-ACCESS-SIGN") != want {
		t.Fatalf("venue signature does not verify over received bytes")
	}

	var order struct {
		ProductID   string `json:"product_id"`
		Side        string `json:"side"`
		OrderConfig struct {
			MarketMarketIOC struct {
				QuoteSize string `json:"quote_size"`
			} `json:"market_market_ioc"`
		} `json:"order_configuration"`
	}
	if err := json.Unmarshal(venueReq.body, &order); err != nil {
		t.Fatalf("unparseable venue body: %v", err)
	}
	if order.Side != "sell" || order.ProductID != "SOL-USDC" {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.OrderConfig.MarketMarketIOC.QuoteSize != "42.50" {
		t.Fatalf("unexpected quote size %s", order.OrderConfig.MarketMarketIOC.QuoteSize)
	}
}
