package profile

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// DateSource is implemented by stored timestamp types that convert
// themselves to a time.Time.
type DateSource interface {
	ToDate() time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// ToTime converts the supported date representations into a time.Time:
// time.Time, *time.Time, DateSource, strings in common layouts and numbers
// holding Unix milliseconds. Zero and unparseable values report false.
func ToTime(v any) (time.Time, bool) {
	var t time.Time

	switch d := v.(type) {
	case time.Time:
		t = d
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		t = *d
	case DateSource:
		converted, ok := fromDateSource(d)
		if !ok {
			return time.Time{}, false
		}
		t = converted
	case string:
		parsed, ok := parseDateString(d)
		if !ok {
			return time.Time{}, false
		}
		t = parsed
	case int:
		t = time.UnixMilli(int64(d))
	case int32:
		t = time.UnixMilli(int64(d))
	case int64:
		t = time.UnixMilli(d)
	case uint:
		if uint64(d) > math.MaxInt64 {
			return time.Time{}, false
		}
		t = time.UnixMilli(int64(d))
	case uint32:
		t = time.UnixMilli(int64(d))
	case uint64:
		if d > math.MaxInt64 {
			return time.Time{}, false
		}
		t = time.UnixMilli(int64(d))
	case float32:
		return ToTime(float64(d))
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, false
		}
		t = time.UnixMilli(int64(d))
	case json.Number:
		if ms, err := d.Int64(); err == nil {
			t = time.UnixMilli(ms)
			break
		}
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return ToTime(f)
	default:
		return time.Time{}, false
	}

	if t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// fromDateSource calls ToDate, treating a panic (typically a nil receiver
// behind the interface) as "no date" so one bad value never breaks a page.
func fromDateSource(d DateSource) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	return d.ToDate(), true
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders v as MM/DD/YYYY, or "" when v is not a usable date.
func FormatDate(v any) string {
	t, ok := ToTime(v)
	if !ok {
		return ""
	}
	return t.Format("01/02/2006")
}

// FormatMonthYear renders v as e.g. "March 2024", or "" when v is not a usable date.
func FormatMonthYear(v any) string {
	t, ok := ToTime(v)
	if !ok {
		return ""
	}
	return t.Format("January 2006")
}
