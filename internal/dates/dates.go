// Package dates handles the calendar days used to select daily summaries.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const layout = "2006-01-02"

// ErrInvalidDate is wrapped by every parse failure.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day with no time zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Range is an inclusive span of days. A nil bound is open-ended.
type Range struct {
	From *Date
	To   *Date
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(input string) (Date, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Date{}, fmt.Errorf("%w: empty input", ErrInvalidDate)
	}

	parsed, err := time.Parse(layout, input)
	if err != nil {
		return Date{}, fmt.Errorf("%w: '%s' is not of the form YYYY-MM-DD", ErrInvalidDate, input)
	}

	return FromTime(parsed), nil
}

// FromTime returns the day t falls on in t's own location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Start returns midnight at the beginning of d in loc.
func (d Date) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days after d.
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Parse turns the --date, --from and --to values into a Range.
// A single date selects just that day and cannot be combined with from or to.
func Parse(date, from, to string) (Range, error) {
	if date != "" && (from != "" || to != "") {
		return Range{}, fmt.Errorf("%w: specify either a date or a from/to range, not both", ErrInvalidDate)
	}

	if date != "" {
		d, err := ParseDate(date)
		if err != nil {
			return Range{}, err
		}
		return Range{From: &d, To: &d}, nil
	}

	var r Range
	if from != "" {
		d, err := ParseDate(from)
		if err != nil {
			return Range{}, err
		}
		r.From = &d
	}
	if to != "" {
		d, err := ParseDate(to)
		if err != nil {
			return Range{}, err
		}
		r.To = &d
	}

	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return Range{}, fmt.Errorf("%w: from date %s is later than to date %s", ErrInvalidDate, r.From, r.To)
	}

	return r, nil
}
