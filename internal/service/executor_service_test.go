package service

import "testing"

// TestDustSettled 卖出后剩余持仓降到粉尘阈值以下时仓位记录应被移除
func TestDustSettled(t *testing.T) {
	tests := []struct {
		name      string
		remaining float64
		threshold float64
		want      bool
	}{
		{"zero remaining", 0, 0, true},
		{"exactly at default threshold", 0.000001, 0, true},
		{"just above default threshold", 0.0000011, 0, false},
		{"meaningful remainder", 0.5, 0, false},
		{"custom threshold keeps position", 0.00005, 0.00001, false},
		{"custom threshold removes position", 0.000005, 0.00001, true},
		{"negative threshold falls back to default", 0.000001, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dustSettled(tt.remaining, tt.threshold); got != tt.want {
				t.Errorf("dustSettled(%v, %v) = %v, want %v", tt.remaining, tt.threshold, got, tt.want)
			}
		})
	}
}
