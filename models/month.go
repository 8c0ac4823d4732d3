package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for plan dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the whole days from a to b (b - a) on the calendar.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// First is the first day of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last is the last day of the month.
func (m Month) Last() time.Time {
	return m.First().AddDate(0, 1, -1)
}

func (m Month) Days() int {
	return m.Last().Day()
}

func (m Month) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(m.First()) && !d.After(m.Last())
}

func (m Month) Next() Month { return MonthOf(m.First().AddDate(0, 1, 0)) }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekWindow is the part of one Monday-started week that lies inside a month.
type WeekWindow struct {
	WeekStart time.Time
	From      time.Time
	To        time.Time
	Days      int
}

// Weeks splits the month into Monday-started windows. The first and last
// windows are clipped to the month and may be shorter than seven days.
func (m Month) Weeks() []WeekWindow {
	var out []WeekWindow
	first, last := m.First(), m.Last()
	for start := WeekStart(first); !start.After(last); start = start.AddDate(0, 0, 7) {
		from, to := start, start.AddDate(0, 0, 6)
		if from.Before(first) {
			from = first
		}
		if to.After(last) {
			to = last
		}
		out = append(out, WeekWindow{WeekStart: start, From: from, To: to, Days: DaysBetween(from, to) + 1})
	}
	return out
}

// Contains reports whether t falls on one of the window's days.
func (w WeekWindow) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.From) && !d.After(w.To)
}
