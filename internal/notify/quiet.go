package notify

import (
	"time"

	"github.com/dukerupert/trimquest/internal/model"
)

// IsQuietHours reports whether push delivery is suppressed at now. The window
// is [start, end) in hours and wraps past midnight when start >= end, so an
// equal pair covers the whole day. A stored 0-0 means no window.
func IsQuietHours(prefs *model.NotificationPreference, now time.Time) bool {
	if prefs == nil || prefs.QuietHoursStart == nil || prefs.QuietHoursEnd == nil {
		return false
	}
	s, e := *prefs.QuietHoursStart, *prefs.QuietHoursEnd
	h := now.Hour()

	switch {
	case s == 0 && e == 0:
		return false
	case s < e:
		return s <= h && h < e
	default:
		return h >= s || h < e
	}
}
