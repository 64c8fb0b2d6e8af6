package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY - Calendar day abstraction (every rule and line is day-granular)
// =============================================================================

// DayLayout is the canonical day/month/year rendering used by rules, lines
// and exported tables.
const DayLayout = "02/01/2006"

// Day is a calendar day normalized to UTC midnight.
type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DayOf(t time.Time) Day { return NewDay(t.Year(), t.Month(), t.Day()) }

// ParseDay parses a canonical dd/mm/yyyy string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Comparison
func (d Day) Before(other Day) bool        { return d.Time.Before(other.Time) }
func (d Day) After(other Day) bool         { return d.Time.After(other.Time) }
func (d Day) Equal(other Day) bool         { return d.Time.Equal(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.After(other) }
func (d Day) AfterOrEqual(other Day) bool  { return !d.Before(other) }

// Arithmetic
func (d Day) AddDays(n int) Day { return DayOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Day) Year() int         { return d.Time.Year() }
func (d Day) Month() time.Month { return d.Time.Month() }
func (d Day) DayOfMonth() int   { return d.Time.Day() }
func (d Day) IsZero() bool      { return d.Time.IsZero() }

func (d Day) String() string { return d.Time.Format(DayLayout) }

// key packs the day into a comparable integer (yyyymmdd).
func (d Day) key() int {
	return d.Year()*10000 + int(d.Month())*100 + d.DayOfMonth()
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) Day { return NewDay(year, month, 1) }

func EndOfMonth(year int, month time.Month) Day {
	return DayOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

// DaysIn returns the number of days of the month, leap years included.
func DaysIn(year int, month time.Month) int {
	return EndOfMonth(year, month).DayOfMonth()
}
