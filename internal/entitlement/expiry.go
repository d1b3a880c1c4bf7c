// AngelaMos | 2026
// expiry.go

package entitlement

import (
	"time"
)

// ExpiryFor counts whole calendar days: the grant ends at local midnight
// `days` days after the date of now, not now + days*24h.
func ExpiryFor(now time.Time, days int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, loc)
}
