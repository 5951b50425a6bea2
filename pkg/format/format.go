// Package format renders byte sizes and timestamps for display.
package format

import (
	"strconv"
	"strings"
	"time"
)

const (
	sizeStep = 1024

	// InvalidDate is shown for timestamps that cannot be parsed.
	InvalidDate = "Invalid Date"

	// zh-CN locale date-time layout: year/month/day without zero padding.
	zhCNLayout = "2006/1/2 15:04:05"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// dateOnlyLayout values are midnight UTC, as ECMAScript reads them.
const dateOnlyLayout = "2006-01-02"

// isoLayouts are tried in order. Date-times without an offset are read as
// local time.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Size formats a byte count as "<value> <unit>" with two decimals.
// GB is the largest unit; larger values stay in GB.
func Size(bytes float64) string {
	size := bytes
	unit := 0
	for size >= sizeStep && unit < len(sizeUnits)-1 {
		size /= sizeStep
		unit++
	}
	return strconv.FormatFloat(size, 'f', 2, 64) + " " + sizeUnits[unit]
}

// Date formats an ISO-8601 date-time in zh-CN style using the local time zone.
func Date(isoDate string) string {
	return DateIn(isoDate, time.Local)
}

// DateIn is Date with an explicit display location.
func DateIn(isoDate string, loc *time.Location) string {
	t, err := ParseISO(isoDate, loc)
	if err != nil {
		return InvalidDate
	}
	return t.In(loc).Format(zhCNLayout)
}

// ParseISO parses an ISO-8601 date or date-time. Date-times without an offset
// are interpreted in loc, bare dates in UTC.
func ParseISO(isoDate string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(isoDate)

	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		return t, nil
	}

	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
