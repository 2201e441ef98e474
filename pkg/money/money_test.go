package money

import "testing"

func TestCommissionCents(t *testing.T) {
	tests := []struct {
		name       string
		priceCents int64
		percentage float64
		want       int64
	}{
		{"hundred reais at 7.5 pct", 10000, 7.5, 750},
		{"zero percentage", 10000, 0, 0},
		{"rounds half up", 9999, 7.5, 750},   // 749.925 -> 750
		{"rounds down below half", 101, 0.4, 0}, // 0.404 -> 0
		{"one centavo boundary", 100, 0.5, 1},   // 0.5 -> 1
		{"large price", 1_000_000_00, 12.34, 12_340_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommissionCents(tt.priceCents, tt.percentage); got != tt.want {
				t.Errorf("CommissionCents(%d, %v) = %d, want %d", tt.priceCents, tt.percentage, got, tt.want)
			}
		})
	}
}

func TestFormatBRL(t *testing.T) {
	if got := FormatBRL(750); got != "R$7.50" {
		t.Errorf("FormatBRL(750) = %q, want R$7.50", got)
	}
	if got := FormatBRL(-101); got != "-R$1.01" {
		t.Errorf("FormatBRL(-101) = %q, want -R$1.01", got)
	}
}
