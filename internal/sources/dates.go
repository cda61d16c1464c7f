package sources

import "time"

// yearEndUTC anchors an annual data point to December 31st of its
// year, the convention used to key an otherwise dateless annual
// series into the daily observation timeline.
func yearEndUTC(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}
