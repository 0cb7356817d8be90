// Package exchange hosts order dispatch adapters for centralized venues.
package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Girro24/sol-vic-gateway/internal/config"
	"github.com/Girro24/sol-vic-gateway/internal/trade"
)

const (
	// VenueCoinbase is the Coinbase Advanced Trade REST API.
	VenueCoinbase = "coinbase"
)

// Dispatcher submits a single market order to a venue. Implementations make
// exactly one attempt: a financial side effect must never be duplicated by a
// blind retry, so retrying is left to the caller's idempotency token.
type Dispatcher interface {
	// Name identifies the venue for status reporting and logs.
	Name() string
	// PlaceMarketOrder submits the intent and returns the venue's outcome.
	// Rejections surface as *trade.UpstreamError with the venue's status and
	// body intact; transport failures as *trade.UnreachableError.
	PlaceMarketOrder(ctx context.Context, intent *trade.Intent) (*trade.Outcome, error)
}

// New constructs the dispatcher for the configured venue.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) (Dispatcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Exchange)) {
	case VenueCoinbase:
		return NewCoinbase(cfg.CoinbaseBaseURL, cfg.CoinbaseAPIKey, cfg.CoinbaseSecret, log, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", trade.ErrUnsupportedExchange, cfg.Exchange)
	}
}
