package core

import (
	"fmt"
	"time"
)

// Date is a calendar day. Ledger entries are posted at day precision,
// normalized to midnight UTC, so cutoff comparisons in balance queries
// are plain time comparisons with no timezone surprises.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Year, Month and Day expose the calendar parts as plain ints.
func (d Date) Year() int  { return d.Time.Year() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Day() int   { return d.Time.Day() }

// FirstOfMonth returns the same month normalized to its 1st, the bucket
// key used by monthly grouping.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// queryDateLayouts are the external representations accepted for
// balance cutoff dates, tried in order.
var queryDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParseQueryDate normalizes an externally supplied date string to a
// Date before it enters core logic. Unparseable input is a hard error
// for the caller to surface, never a silent default.
func ParseQueryDate(s string) (Date, error) {
	for _, layout := range queryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("parse query date %q: %w", s, ErrUnparseableDate)
}
