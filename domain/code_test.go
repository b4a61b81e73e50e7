package domain

import "testing"

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"already uppercase", "AB12", "AB12", true},
		{"lowercase gets uppercased", "ab12", "AB12", true},
		{"surrounding whitespace trimmed", "  ab12  ", "AB12", true},
		{"too short", "AB1", "", false},
		{"too long", "AB123", "", false},
		{"contains invalid character", "AB-2", "", false},
		{"empty string", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCode(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeCode(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
