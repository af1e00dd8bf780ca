package report

import "strconv"

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatBytes renders a byte count using 1024-based units with integer
// truncation: 512 -> "512 B", 2048 -> "2 KB", 5*1024*1024 -> "5 MB".
// Negative values are passed through unscaled.
func FormatBytes(bytes int64) string {
	switch {
	case bytes < kib:
		return strconv.FormatInt(bytes, 10) + " B"
	case bytes < mib:
		return strconv.FormatInt(bytes/kib, 10) + " KB"
	case bytes < gib:
		return strconv.FormatInt(bytes/mib, 10) + " MB"
	default:
		return strconv.FormatInt(bytes/gib, 10) + " GB"
	}
}
