package shared

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02 15:04"
	TimestampLayout = "15:04:05"
)

// FormatDate renders an upload time for song listings.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateLayout)
}

// FormatTimestamp renders a log entry time.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatFileSize renders a byte count in KB, MB or GB using decimal units.
func FormatFileSize(size int64) string {
	const (
		kb = 1000
		mb = kb * 1000
		gb = mb * 1000
	)

	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.1f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%d KB", size/kb)
	case size > 0:
		return "1 KB"
	default:
		return "Zero KB"
	}
}

// FormatCapacity renders a byte count as binary gigabytes with one decimal, e.g. "12.3G".
func FormatCapacity(bytes int64) string {
	return fmt.Sprintf("%.1fG", float64(bytes)/1024/1024/1024)
}
