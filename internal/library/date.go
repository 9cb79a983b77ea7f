package library

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar date with no time of day or time zone attached, due dates and
// expirations are shown by the catalog this way.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of `t` in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate returns a pointer to a Date, this is just a convenience for optional fields.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Year: year, Month: month, Day: day}
}

func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Before(other Date) bool {
	return d.Time(nil).Before(other.Time(nil))
}

func (d Date) After(other Date) bool {
	return d.Time(nil).After(other.Time(nil))
}

// AddDays returns the date `n` days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(nil).AddDate(0, 0, n))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(buff []byte) error {
	var text string
	err := json.Unmarshal(buff, &text)
	if err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, text)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", text, err)
	}
	*d = DateOf(t)
	return nil
}
