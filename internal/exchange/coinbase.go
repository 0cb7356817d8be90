package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Girro24/sol-vic-gateway/internal/metrics"
	"github.com/Girro24/sol-vic-gateway/internal/trade"
)

// ordersPath is used both in the request URL and in the signature prehash;
// the two must stay byte-identical.
const ordersPath = "/api/v3/brokerage/orders"

const (
	defaultOrderTimeout = 20 * time.Second
	maxResponseBytes    = 1 << 20
)

// Coinbase dispatches market IOC orders to the Coinbase Advanced Trade API.
type Coinbase struct {
	baseURL string
	signer  *Signer
	client  *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures dispatcher construction parameters.
type Option func(*Coinbase)

// WithOrderTimeout overrides the default outbound call timeout.
func WithOrderTimeout(d time.Duration) Option {
	return func(c *Coinbase) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithClock overrides the timestamp source, for deterministic signing tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coinbase) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoinbase constructs the Coinbase adapter.
func NewCoinbase(baseURL, apiKey, apiSecret string, log zerolog.Logger, opts ...Option) *Coinbase {
	c := &Coinbase{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		signer:  NewSigner(apiKey, apiSecret),
		client:  &http.Client{Timeout: defaultOrderTimeout},
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Dispatcher.
func (c *Coinbase) Name() string { return VenueCoinbase }

type orderRequest struct {
	ClientOrderID string     `json:"client_order_id"`
	ProductID     string     `json:"product_id"`
	Side          string     `json:"side"`
	OrderConfig   orderConfig `json:"order_configuration"`
}

type orderConfig struct {
	MarketMarketIOC marketIOC `json:"market_market_ioc"`
}

type marketIOC struct {
	QuoteSize string `json:"quote_size"`
}

type orderResponse struct {
	Success         bool   `json:"success"`
	OrderID         string `json:"order_id"`
	SuccessResponse struct {
		OrderID string `json:"order_id"`
	} `json:"success_response"`
}

// PlaceMarketOrder implements Dispatcher. It signs the literal bytes that go
// on the wire and makes exactly one attempt. The request runs on a detached
// timeout context: if the webhook caller disconnects mid-flight the order may
// already be at the venue, and aborting would leave its state unknown.
func (c *Coinbase) PlaceMarketOrder(ctx context.Context, intent *trade.Intent) (*trade.Outcome, error) {
	clientOrderID := newClientOrderID(c.now())
	body, err := json.Marshal(orderRequest{
		ClientOrderID: clientOrderID,
		ProductID:     intent.Symbol,
		Side:          string(intent.Side),
		OrderConfig: orderConfig{
			MarketMarketIOC: marketIOC{QuoteSize: intent.QuoteUSD.StringFixed(2)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	headers := c.signer.Headers(timestamp, http.MethodPost, ordersPath, string(body))

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.OrderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &trade.UnreachableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &trade.UnreachableError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Int("status", resp.StatusCode).Str("client_order_id", clientOrderID).
			Bytes("body", raw).Msg("order rejected")
		return nil, &trade.UpstreamError{Status: resp.StatusCode, Body: raw}
	}

	var parsed orderResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.log.Warn().Err(err).Msg("unparseable success response")
	}
	orderID := parsed.OrderID
	if orderID == "" {
		orderID = parsed.SuccessResponse.OrderID
	}

	metrics.OrdersTotal.WithLabelValues(intent.Symbol, string(intent.Side)).Inc()
	c.log.Info().Str("sym", intent.Symbol).Str("side", string(intent.Side)).
		Str("quote_size", intent.QuoteUSD.StringFixed(2)).
		Str("client_order_id", clientOrderID).Str("order_id", orderID).Msg("order placed")

	return &trade.Outcome{
		Success:       true,
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		HTTPStatus:    resp.StatusCode,
		RawResponse:   raw,
	}, nil
}

// newClientOrderID builds the venue idempotency token: millisecond timestamp
// plus a random suffix so concurrent identical alerts still get distinct ids.
func newClientOrderID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
