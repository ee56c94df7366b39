package core

import "testing"

func TestToCentsRoundTrip(t *testing.T) {
	// Any amount with at most two decimal digits must survive
	// display -> minor -> display conversion exactly.
	cases := []float64{0.01, 0.1, 1, 1.23, 99.99, 100.5, 12345.67, 99999999.99, 100000000}
	for _, amount := range cases {
		m := ToCents(amount)
		if got := m.Amount(); got != amount {
			t.Fatalf("round-trip %v: got %v (cents=%d)", amount, got, m.Cents)
		}
	}
}

func TestToCents(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{1, 100},
		{1.23, 123},
		{0.01, 1},
		{100.56, 10056},
		{0.1 + 0.2, 30}, // binary representation error must not leak into cents
	}
	for _, tc := range cases {
		if got := ToCents(tc.in).Cents; got != tc.out {
			t.Fatalf("ToCents(%v) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestRoundAmount(t *testing.T) {
	cases := []struct {
		in  float64
		out float64
	}{
		{100.556, 100.56},
		{100.554, 100.55},
		{10.125, 10.13}, // exact binary half rounds away from zero
		{1.2, 1.2},
		{7, 7},
	}
	for _, tc := range cases {
		if got := RoundAmount(tc.in); got != tc.out {
			t.Fatalf("RoundAmount(%v) = %v, want %v", tc.in, got, tc.out)
		}
	}
}
