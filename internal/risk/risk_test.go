package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAllow(t *testing.T) {
	limits := Limits{MaxNotionalPerTrade: decimal.NewFromInt(50)}
	if !limits.Allow(decimal.NewFromFloat(49.9)) {
		t.Fatalf("expected notional under limit to pass")
	}
	if limits.Allow(decimal.NewFromFloat(50.1)) {
		t.Fatalf("expected notional above limit to fail")
	}
}

func TestAllowUnlimited(t *testing.T) {
	var limits Limits
	if !limits.Allow(decimal.NewFromInt(1_000_000)) {
		t.Fatalf("zero max should mean unlimited")
	}
}
