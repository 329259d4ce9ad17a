package clock

import (
	"testing"
	"time"
)

// TestFormat verifies m:ss output rounds down and clamps negatives.
func TestFormat(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{999 * time.Millisecond, "0:00"},
		{time.Second, "0:01"},
		{59900 * time.Millisecond, "0:59"},
		{60 * time.Second, "1:00"},
		{10*time.Minute + 5*time.Second, "10:05"},
		{-3 * time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestFormatPrecise verifies hundredths are truncated, not rounded.
func TestFormatPrecise(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00.00"},
		{1239 * time.Millisecond, "0:01.23"},
		{59990 * time.Millisecond, "0:59.99"},
		{61*time.Second + 50*time.Millisecond, "1:01.05"},
		{-time.Second, "0:00.00"},
	}
	for _, tt := range tests {
		if got := FormatPrecise(tt.in); got != tt.want {
			t.Errorf("FormatPrecise(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
