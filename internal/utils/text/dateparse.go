package text

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// namedZoneOffsets maps unknown named timezones to a fixed UTC offset,
// used as the last-resort fallback in ParseDate's chain.
var namedZoneOffsets = map[string]string{
	"IST": "+0530",
	"GMT": "+0000",
	"UTC": "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
	"JST": "+0900",
	"BST": "+0100",
	"CET": "+0100",
	"CEST": "+0200",
}

// rfc822ISOLayouts is the fixed list of RFC 822 / ISO 8601 patterns tried
// after the library-grade parser fails.
var rfc822ISOLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

var manualRFC822Re = regexp.MustCompile(
	`(?i)^\w{3},?\s+(\d{1,2})\s+(\w{3})\s+(\d{4})\s+(\d{2}):(\d{2}):(\d{2})\s*(\S+)?$`)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate attempts, in order: a library-grade parser (dateparse), a
// fixed list of RFC 822 / ISO 8601 layouts, then a manual RFC 822 regex
// with named-zone substitution. Output is always UTC. Returns an error
// only when every strategy fails.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("parse date: empty input")
	}

	if t, err := dateparse.ParseAny(value); err == nil {
		return t.UTC(), nil
	}

	normalized := substituteNamedZone(value)
	for _, layout := range rfc822ISOLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.UTC(), nil
		}
	}

	if t, ok := parseManualRFC822(normalized); ok {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parse date: unrecognized format %q", value)
}

func substituteNamedZone(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return value
	}
	last := strings.ToUpper(fields[len(fields)-1])
	if offset, ok := namedZoneOffsets[last]; ok {
		fields[len(fields)-1] = offset
		return strings.Join(fields, " ")
	}
	return value
}

func parseManualRFC822(value string) (time.Time, bool) {
	m := manualRFC822Re.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthAbbrev[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	var day, year, hour, minute, second int
	if _, err := fmt.Sscanf(m[1], "%d", &day); err != nil {
		return time.Time{}, false
	}
	if _, err := fmt.Sscanf(m[3], "%d", &year); err != nil {
		return time.Time{}, false
	}
	if _, err := fmt.Sscanf(m[4], "%d", &hour); err != nil {
		return time.Time{}, false
	}
	if _, err := fmt.Sscanf(m[5], "%d", &minute); err != nil {
		return time.Time{}, false
	}
	if _, err := fmt.Sscanf(m[6], "%d", &second); err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC), true
}
