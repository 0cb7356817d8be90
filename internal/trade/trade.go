// Package trade standardizes payloads shared between the webhook intake and
// the exchange dispatch layers.
package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side enumerates order directions accepted by exchange adapters.
type Side string

const (
	// Buy indicates a long market order.
	Buy Side = "buy"
	// Sell indicates a short market order.
	Sell Side = "sell"
)

// Intent is the canonical trade request produced by normalization. Past this
// point Side is exactly buy or sell, Symbol is non-empty, and QuoteUSD is a
// positive quote-currency amount.
type Intent struct {
	Side     Side
	Symbol   string
	QuoteUSD decimal.Decimal
	Reason   string
	Ts       time.Time
}

// Outcome captures the result of a single order submission.
type Outcome struct {
	Success       bool
	OrderID       string
	ClientOrderID string
	HTTPStatus    int
	RawResponse   []byte
}

var (
	// ErrUnauthorized means the alert failed every configured auth check.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedPayload means the alert body could not be normalized.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnsupportedExchange means no adapter exists for the configured venue.
	ErrUnsupportedExchange = errors.New("unsupported exchange")
)

// UpstreamError reports an exchange rejection. Status and Body are preserved
// verbatim so the caller sees the venue's exact diagnostic.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("exchange rejected order: status %d: %s", e.Status, e.Body)
}

// UnreachableError reports a transport-level failure (timeout, DNS,
// connection reset) before any exchange response was read.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("exchange unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
