package fx

import (
	"math"
	"testing"
)

func TestToIDR_USDConversion(t *testing.T) {
	got := ToIDR(100, USD, 15000)
	if got != 1500000 {
		t.Errorf("expected 1500000, got %f", got)
	}
}

func TestToIDR_IDRPassthrough(t *testing.T) {
	got := ToIDR(2500000000, IDR, 15000)
	if got != 2500000000 {
		t.Errorf("expected passthrough, got %f", got)
	}
}

func TestToIDR_FallbackRate(t *testing.T) {
	got := ToIDR(10, USD, 0)
	if got != 10*DefaultRate {
		t.Errorf("expected fallback rate conversion, got %f", got)
	}
}

func TestRoundTrip(t *testing.T) {
	// toUsd(toIdr(x, rate), rate) == x within 1e-6 relative tolerance.
	cases := []struct {
		x    float64
		rate float64
	}{
		{1, 15000},
		{123.456, 15000},
		{5000000000, 15234.5},
		{0.01, 9999.99},
		{742, 1},
	}

	for _, tc := range cases {
		back := ToUSD(ToIDR(tc.x, USD, tc.rate), tc.rate)
		rel := math.Abs(back-tc.x) / tc.x
		if rel > 1e-6 {
			t.Errorf("round trip x=%f rate=%f: got %f (rel err %e)", tc.x, tc.rate, back, rel)
		}
	}
}
