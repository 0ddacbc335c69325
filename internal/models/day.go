package models

import (
	"fmt"
	"strings"
	"time"
)

// DayCode is the weekday column a weekly availability slot belongs to.
type DayCode string

const (
	Sunday    DayCode = "sun"
	Monday    DayCode = "mon"
	Tuesday   DayCode = "tue"
	Wednesday DayCode = "wed"
	Thursday  DayCode = "thu"
	Friday    DayCode = "fri"
	Saturday  DayCode = "sat"
)

// weekOrder is Monday-anchored: the index is the offset from the week start.
var weekOrder = []DayCode{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDayCode accepts one of the seven lowercase codes (case-insensitive).
func ParseDayCode(s string) (DayCode, error) {
	code := DayCode(strings.ToLower(strings.TrimSpace(s)))
	for _, d := range weekOrder {
		if d == code {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day code %q", s)
}

// Offset returns the number of days from Monday (mon=0 ... sun=6).
func (d DayCode) Offset() int {
	for i, c := range weekOrder {
		if c == d {
			return i
		}
	}
	return -1
}

// DayCodeOf converts a Go weekday.
func DayCodeOf(w time.Weekday) DayCode {
	// time.Sunday == 0
	return weekOrder[(int(w)+6)%7]
}
