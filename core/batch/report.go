package batch

import (
	"fmt"
	"strings"
	"time"
)

const barWidth = 20

func percentOf(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(processed) / float64(total) * 100
}

func renderBar(processed, total int) string {
	filled := 0
	if total > 0 {
		filled = barWidth * processed / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func formatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}

// formatETA estimates the remaining time as (elapsed / processed) *
// (total - processed). Before anything is processed there is nothing to
// extrapolate from.
func formatETA(elapsed time.Duration, processed, total int) string {
	if processed <= 0 {
		return "calculating..."
	}
	remaining := total - processed
	if remaining < 0 {
		remaining = 0
	}
	eta := time.Duration(float64(elapsed) / float64(processed) * float64(remaining))
	return formatDuration(eta)
}

func messagesPerMinute(processed int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(processed) / elapsed.Minutes()
}

func progressText(sourceTitle string, processed, total int, elapsed time.Duration) string {
	return fmt.Sprintf(
		"Processing messages from %s\n\n%s %.1f%%\n%d/%d messages\nElapsed: %s • ETA: %s",
		sourceTitle,
		renderBar(processed, total), percentOf(processed, total),
		processed, total,
		formatDuration(elapsed), formatETA(elapsed, processed, total),
	)
}

func completionText(sourceTitle, targetTitle string, processed int, elapsed time.Duration) string {
	return fmt.Sprintf(
		"Indexing complete: %s → %s\n\nProcessed %d messages in %s\n%.1f messages/minute\n\nMessages organized into topics.",
		sourceTitle, targetTitle,
		processed, formatDuration(elapsed),
		messagesPerMinute(processed, elapsed),
	)
}
