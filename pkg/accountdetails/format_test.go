package accountdetails

import (
	"encoding/json"
	"testing"
)

func TestFormatNQT(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"123456789012", "1,234.56789012", false},
		{"100000000", "1", false},
		{"150000000", "1.5", false},
		{"1", "0.00000001", false},
		{"0", "0", false},
		{"", "0", false},
		{"-250000000", "-2.5", false},
		{"100000000000000000", "1,000,000,000", false},
		{"-9223372036854775808", "-92,233,720,368.54775808", false},
		{"9223372036854775807", "92,233,720,368.54775807", false},
		{"12a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FormatNQT(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatNQT(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("FormatNQT(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatNXT(t *testing.T) {
	tests := []struct {
		in      json.Number
		want    string
		wantErr bool
	}{
		{"1234", "1,234", false},
		{"0", "0", false},
		{"", "0", false},
		{"1.5", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := FormatNXT(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("FormatNXT(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
