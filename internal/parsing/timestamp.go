package parsing

import (
	"regexp"
	"time"
)

// Game log lines are prefixed [2025.11.26-20.02.54:023][713]. Most parsers
// only need second precision; the level parsers keep the milliseconds.
var timestampRe = regexp.MustCompile(`\[(\d{4}\.\d{2}\.\d{2})-(\d{2}\.\d{2}\.\d{2}):(\d{3})]`)

const (
	secondLayout = "2006.01.02-15.04.05"
	milliLayout  = "2006.01.02 15.04.05.000"
)

// parseTimestamp decodes the second-precision form captured by most parser
// regexes, e.g. "2025.11.26-20.02.54".
func parseTimestamp(s string) time.Time {
	ts, err := time.Parse(secondLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// lineTimestamp extracts the full millisecond-precision timestamp from a raw
// line. The second return is false when the line has no timestamp prefix.
func lineTimestamp(line string) (time.Time, bool) {
	m := timestampRe.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(milliLayout, m[1]+" "+m[2]+"."+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
