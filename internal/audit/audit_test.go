package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Girro24/sol-vic-gateway/internal/trade"
)

func TestRecordDelivers(t *testing.T) {
	received := make(chan Entry, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var entry Entry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			t.Errorf("decode entry: %v", err)
		}
		received <- entry
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	intent := &trade.Intent{
		Side:     trade.Buy,
		Symbol:   "SOL-USDC",
		QuoteUSD: decimal.NewFromInt(25),
		Reason:   "trend",
	}
	outcome := &trade.Outcome{Success: true, OrderID: "abc", ClientOrderID: "123-dead", HTTPStatus: 200}
	entry := NewEntry([]byte(`{"action":"buy","usd":25}`), intent, outcome, nil)

	sink := NewSink(srv.URL)
	if err := sink.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	got := <-received
	if got.Side != "buy" || got.Symbol != "SOL-USDC" || got.QuoteUSD != "25.00" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.Outcome == nil || !got.Outcome.Success || got.Outcome.OrderID != "abc" {
		t.Fatalf("unexpected outcome %+v", got.Outcome)
	}
}

func TestRecordNoOpWhenUnconfigured(t *testing.T) {
	sink := NewSink("")
	if sink.Enabled() {
		t.Fatalf("empty sink reported enabled")
	}
	if err := sink.Record(context.Background(), Entry{Ts: time.Now()}); err != nil {
		t.Fatalf("unconfigured Record returned error: %v", err)
	}
}

func TestRecordSurfacesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewSink(srv.URL)
	if err := sink.Record(context.Background(), Entry{Ts: time.Now()}); err == nil {
		t.Fatalf("expected error on 500 response")
	}

	down := NewSink("http://127.0.0.1:1")
	if err := down.Record(context.Background(), Entry{Ts: time.Now()}); err == nil {
		t.Fatalf("expected error on unreachable endpoint")
	}
}

func TestNewEntryWithoutOutcome(t *testing.T) {
	entry := NewEntry([]byte(`not json`), nil, nil, context.DeadlineExceeded)
	if entry.Alert != nil {
		t.Fatalf("invalid alert bytes should not be embedded verbatim")
	}
	if entry.Outcome != nil {
		t.Fatalf("expected nil outcome")
	}
	if entry.Error == "" {
		t.Fatalf("expected failure string recorded")
	}
}
