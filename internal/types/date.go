package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is how a Date is written to the backing file and to JSON.
const DateLayout = "2006-01-02"

// dateLayouts are the textual forms accepted by ParseDate, tried in order.
// Numeric month/day fields use the single-digit verbs so that both "4" and
// "04" are accepted. Slashed dates are month-first; dashed and dotted dates
// with the year last are day-first, as they are written in the register.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2006/1/2",
	"2-1-2006",
	"2.1.2006",
	"2006-1-2 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2-Jan-2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ErrEmptyDate is returned by ParseDate for blank input.
var ErrEmptyDate = errors.New("date is empty")

// Date is a calendar day without time-of-day or zone.
type Date struct {
	time.Time
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts any of the supported textual forms and returns the day
// it denotes.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
