// Package intent maps loosely-typed alert payloads into canonical trade
// intents.
package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Girro24/sol-vic-gateway/internal/trade"
)

// Alert is the wire shape of an inbound webhook payload. Unknown fields are
// ignored; the key field is consumed by the authenticator, not here.
type Alert struct {
	Key    string       `json:"key"`
	Action string       `json:"action"`
	Symbol string       `json:"symbol"`
	USD    *json.Number `json:"usd"`
	Reason string       `json:"reason"`
}

// Normalizer applies process defaults and action mapping to decoded alerts.
type Normalizer struct {
	defaultSymbol    string
	defaultUSD       decimal.Decimal
	allowImplicitBuy bool
}

// NewNormalizer builds a normalizer. allowImplicitBuy restores the legacy
// behavior of treating any unrecognized action as a buy; left off, an
// unrecognized action is a malformed payload so a caller typo cannot turn
// into a live trade.
func NewNormalizer(defaultSymbol string, defaultUSD float64, allowImplicitBuy bool) *Normalizer {
	return &Normalizer{
		defaultSymbol:    defaultSymbol,
		defaultUSD:       decimal.NewFromFloat(defaultUSD),
		allowImplicitBuy: allowImplicitBuy,
	}
}

// Decode parses raw alert bytes. A body that is not a JSON object is a
// malformed payload.
func Decode(raw []byte) (*Alert, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var alert Alert
	if err := dec.Decode(&alert); err != nil {
		return nil, fmt.Errorf("%w: decode alert: %v", trade.ErrMalformedPayload, err)
	}
	return &alert, nil
}

// Normalize produces a canonical trade intent from a decoded alert.
// Defaults fill absent fields only; a present-but-invalid usd value is an
// error, never silently replaced.
func (n *Normalizer) Normalize(alert *Alert) (*trade.Intent, error) {
	side, err := n.resolveSide(alert.Action)
	if err != nil {
		return nil, err
	}

	symbol := strings.TrimSpace(alert.Symbol)
	if symbol == "" {
		symbol = n.defaultSymbol
	}
	if symbol == "" {
		return nil, fmt.Errorf("%w: no symbol in payload and no default configured", trade.ErrMalformedPayload)
	}

	quote := n.defaultUSD
	if alert.USD != nil {
		quote, err = decimal.NewFromString(alert.USD.String())
		if err != nil {
			return nil, fmt.Errorf("%w: usd %q is not numeric", trade.ErrMalformedPayload, alert.USD.String())
		}
		if !quote.IsPositive() {
			return nil, fmt.Errorf("%w: usd must be positive, got %s", trade.ErrMalformedPayload, quote)
		}
	}
	if !quote.IsPositive() {
		return nil, fmt.Errorf("%w: default order size is not positive", trade.ErrMalformedPayload)
	}

	reason := strings.TrimSpace(alert.Reason)
	if reason == "" {
		reason = "manual"
	}

	return &trade.Intent{
		Side:     side,
		Symbol:   symbol,
		QuoteUSD: quote,
		Reason:   reason,
		Ts:       time.Now().UTC(),
	}, nil
}

func (n *Normalizer) resolveSide(action string) (trade.Side, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "buy", "start_long", "open_long":
		return trade.Buy, nil
	case "sell":
		return trade.Sell, nil
	default:
		if n.allowImplicitBuy {
			return trade.Buy, nil
		}
		return "", fmt.Errorf("%w: unrecognized action %q", trade.ErrMalformedPayload, action)
	}
}
