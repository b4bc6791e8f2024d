package chain

import (
	"math"
	"math/big"
	"testing"
)

func TestWeiToBNB(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		want float64
	}{
		{"nil", nil, 0},
		{"zero", big.NewInt(0), 0},
		{"one bnb", new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), 1},
		{"half bnb", big.NewInt(5e17), 0.5},
		{"gwei", big.NewInt(1e9), 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeiToBNB(tt.wei)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("WeiToBNB(%v) = %v, want %v", tt.wei, got, tt.want)
			}
		})
	}
}

func TestBNBToWei(t *testing.T) {
	if got := BNBToWei(-1); got.Sign() != 0 {
		t.Errorf("expected 0 wei for negative amount, got %v", got)
	}
	if got := BNBToWei(0); got.Sign() != 0 {
		t.Errorf("expected 0 wei for zero amount, got %v", got)
	}

	got := BNBToWei(0.005)
	want := big.NewInt(5e15)
	diff := new(big.Int).Abs(new(big.Int).Sub(got, want))
	// 浮点换算允许极小的尾差
	if diff.Cmp(big.NewInt(1024)) > 0 {
		t.Errorf("BNBToWei(0.005) = %v, want ~%v", got, want)
	}
}

func TestTokenUnitsRoundTrip(t *testing.T) {
	units := ToTokenUnits(123.456, 9)
	got := FromTokenUnits(units, 9)
	if math.Abs(got-123.456) > 1e-6 {
		t.Errorf("round trip = %v, want 123.456", got)
	}

	if got := FromTokenUnits(nil, 18); got != 0 {
		t.Errorf("expected 0 for nil amount, got %v", got)
	}
	if got := ToTokenUnits(-5, 18); got.Sign() != 0 {
		t.Errorf("expected 0 units for negative amount, got %v", got)
	}
}
