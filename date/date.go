package date

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a calendar day, with no time or zone component.
// The zero value is not a valid date, and is used as "unset".
type Date struct {
	t time.Time
}

func New(year uint32, month time.Month, day uint32) Date {
	return Date{time.Date(int(year), month, int(day), 0, 0, 0, 0, time.UTC)}
}

func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(uint32(y), m, uint32(d))
}

// Parse accepts ISO dates (2006-01-02), and ISO timestamps, of which only the
// day is kept.
func Parse(s string) (Date, error) {
	if t, err := time.Parse(layout, s); err == nil {
		return FromTime(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return FromTime(t), nil
	}
	return Date{}, fmt.Errorf("Invalid date '%s'. Expected format YYYY-MM-DD", s)
}

func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) Year() int {
	return d.t.Year()
}

func (d Date) Month() time.Month {
	return d.t.Month()
}

func (d Date) Day() int {
	return d.t.Day()
}

func (d Date) AddDays(days int) Date {
	return Date{d.t.AddDate(0, 0, days)}
}

func (d Date) After(o Date) bool {
	return d.t.After(o.t)
}

func (d Date) Before(o Date) bool {
	return d.t.Before(o.t)
}

func (d Date) Equal(o Date) bool {
	return d.t.Equal(o.t)
}

// DaysSince returns the number of whole days from o to d (negative if d is
// before o).
func (d Date) DaysSince(o Date) int {
	return int(d.t.Sub(o.t).Hours() / 24)
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	return d.t.Format(layout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
