package storage

import "testing"

// TestPlaceholders verifies the numbered parameter groups used by batch inserts.
func TestPlaceholders(t *testing.T) {
	tests := []struct {
		base, n int
		want    string
	}{
		{0, 3, "($1,$2,$3)"},
		{13, 2, "($14,$15)"},
		{0, 1, "($1)"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.base, tt.n); got != tt.want {
			t.Errorf("placeholders(%d, %d) = %q, want %q", tt.base, tt.n, got, tt.want)
		}
	}
}

// TestTruncInterval verifies the bucket-to-date_trunc mapping.
func TestTruncInterval(t *testing.T) {
	tests := []struct {
		bucket string
		want   string
	}{
		{"1 day", "day"},
		{"1 week", "week"},
		{"1 month", "month"},
		{"anything else", "day"},
	}

	for _, tt := range tests {
		got := truncInterval(tt.bucket)
		if got != tt.want {
			t.Errorf("truncInterval(%q) = %q, want %q", tt.bucket, got, tt.want)
		}
	}
}
