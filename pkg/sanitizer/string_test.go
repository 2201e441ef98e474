package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"  João  da   Silva ", "João da Silva"},
		{"one\ttwo\n three", "one two three"},
	}

	for _, tt := range tests {
		if got := TrimAndNormalize(tt.in); got != tt.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeObservations(t *testing.T) {
	in := "cliente prefere\x00 máquina 2\n sem navalha"
	want := "cliente prefere máquina 2 sem navalha"
	if got := NormalizeObservations(in); got != want {
		t.Errorf("NormalizeObservations(%q) = %q, want %q", in, got, want)
	}
}
