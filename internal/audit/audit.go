// Package audit forwards best-effort trade records to an external logging
// endpoint. Nothing here may ever affect the primary webhook response.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Girro24/sol-vic-gateway/internal/trade"
)

const defaultTimeout = 10 * time.Second

// Entry is one structured audit record. Outcome is nil when the exchange
// call never completed.
type Entry struct {
	Ts       time.Time       `json:"ts"`
	Alert    json.RawMessage `json:"alert"`
	Side     string          `json:"side,omitempty"`
	Symbol   string          `json:"symbol,omitempty"`
	QuoteUSD string          `json:"quote_usd,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Outcome  *Outcome        `json:"outcome,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Outcome is the audit view of an exchange result.
type Outcome struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	HTTPStatus    int    `json:"http_status"`
}

// Sink posts entries to a single endpoint with a short timeout.
type Sink struct {
	url    string
	client *http.Client
}

// NewSink builds a sink for the given endpoint. An empty URL yields a sink
// whose Record is a no-op.
func NewSink(url string) *Sink {
	return &Sink{url: url, client: &http.Client{Timeout: defaultTimeout}}
}

// Enabled reports whether an endpoint is configured.
func (s *Sink) Enabled() bool { return s.url != "" }

// Record delivers one entry. The error return exists so the caller can log
// the failure; it must be discarded afterwards, never propagated to the
// webhook response.
func (s *Sink) Record(ctx context.Context, entry Entry) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NewEntry assembles an entry from the pieces available at call time. intent
// and outcome may each be nil.
func NewEntry(raw []byte, intent *trade.Intent, outcome *trade.Outcome, failure error) Entry {
	entry := Entry{Ts: time.Now().UTC(), Alert: json.RawMessage(raw)}
	if !json.Valid(raw) {
		entry.Alert = nil
	}
	if intent != nil {
		entry.Side = string(intent.Side)
		entry.Symbol = intent.Symbol
		entry.QuoteUSD = intent.QuoteUSD.StringFixed(2)
		entry.Reason = intent.Reason
	}
	if outcome != nil {
		entry.Outcome = &Outcome{
			Success:       outcome.Success,
			OrderID:       outcome.OrderID,
			ClientOrderID: outcome.ClientOrderID,
			HTTPStatus:    outcome.HTTPStatus,
		}
	}
	if failure != nil {
		entry.Error = failure.Error()
	}
	return entry
}
