package report

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small", 512, "512 B"},
		{"just below KB", 1023, "1023 B"},
		{"exact KB", 2048, "2 KB"},
		{"truncated KB", 2047, "1 KB"},
		{"exact MB", 5 * 1024 * 1024, "5 MB"},
		{"truncated MB", 5*1024*1024 + 300*1024, "5 MB"},
		{"exact GB", 3 * 1024 * 1024 * 1024, "3 GB"},
		{"large GB", 1024 * 1024 * 1024 * 1024, "1024 GB"},
		{"negative passthrough", -1, "-1 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
