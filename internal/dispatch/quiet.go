package dispatch

import (
	"time"

	"github.com/heraldhq/herald/internal/domain/policy"
)

// withinQuietHours evaluates the tenant's quiet window against now. The
// window is expressed in local wall-clock hours via a fixed UTC offset;
// start > end wraps past midnight, start == end means the whole day is
// quiet.
func withinQuietHours(q policy.QuietHours, now time.Time) bool {
	if !q.Enabled {
		return false
	}
	local := now.UTC().Add(time.Duration(q.TimezoneOffsetMinutes) * time.Minute)
	h := local.Hour()
	switch {
	case q.StartHour == q.EndHour:
		return true
	case q.StartHour < q.EndHour:
		return h >= q.StartHour && h < q.EndHour
	default:
		return h >= q.StartHour || h < q.EndHour
	}
}
