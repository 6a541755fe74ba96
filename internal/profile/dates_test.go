package profile

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

type storedStamp struct{ t time.Time }

func (s storedStamp) ToDate() time.Time { return s.t }

// pointerStamp dereferences its receiver, so a typed nil panics in ToDate.
type pointerStamp struct{ t time.Time }

func (s *pointerStamp) ToDate() time.Time { return s.t }

func TestFormatDate(t *testing.T) {
	day := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	var nilTime *time.Time
	var nilStamp *pointerStamp
	ms := day.UnixMilli()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"time.Time", day, "03/05/2024"},
		{"pointer", &day, "03/05/2024"},
		{"RFC3339 string", "2024-03-05T10:00:00Z", "03/05/2024"},
		{"date-only string", "2024-03-05", "03/05/2024"},
		{"unix millis int64", day.UnixMilli(), "03/05/2024"},
		{"unix millis float", float64(day.UnixMilli()), "03/05/2024"},
		{"toDate accessor", storedStamp{day}, "03/05/2024"},
		{"toDate pointer", &pointerStamp{day}, "03/05/2024"},
		{"nil toDate source", nilStamp, ""},
		{"unix millis int", int(ms), "03/05/2024"},
		{"unix millis uint64", uint64(ms), "03/05/2024"},
		{"unix millis json.Number", json.Number("1709640000000"), "03/05/2024"},
		{"float json.Number", json.Number("1709640000000.0"), "03/05/2024"},
		{"bad json.Number", json.Number("soon"), ""},
		{"int32 seconds-sized value", int32(1), "01/01/1970"},
		{"not a date", "not-a-date", ""},
		{"empty string", "", ""},
		{"nil", nil, ""},
		{"nil pointer", nilTime, ""},
		{"zero time", time.Time{}, ""},
		{"NaN", math.NaN(), ""},
		{"unsupported type", struct{}{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.input); got != tt.want {
				t.Errorf("FormatDate(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatMonthYear(t *testing.T) {
	got := FormatMonthYear(time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	if got != "January 2023" {
		t.Errorf("FormatMonthYear() = %q, want %q", got, "January 2023")
	}
	if got := FormatMonthYear("garbage"); got != "" {
		t.Errorf("FormatMonthYear(garbage) = %q, want empty", got)
	}
}
