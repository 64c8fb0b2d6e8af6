/*
period.go - Promotional periods and the period descriptor resolver

PURPOSE:
  A discount rule carries a raw descriptor such as "1_5;20_25": a list of
  closed day ranges inside the report month. ResolvePeriod turns that text
  into the concrete set of eligible days, validated against the real
  calendar for the report year/month.

DESCRIPTOR GRAMMAR:
  descriptor := range (";" range)*
  range      := start "_" end        (day numbers, start <= end)

VALIDATION:
  Every range must satisfy 1 <= start <= end <= DaysIn(year, month).
  Any violation (or unparsable text) yields a *ValidationError, which
  wraps ErrValidation.

EXAMPLE:
  set, err := generic.ResolvePeriod("1_5;3_8", 2023, time.March)
  // set.Len() == 8, set.Strings()[0] == "01/03/2023"

SEE ALSO:
  - time.go: Day primitives and DaysIn
  - discount/rules.go: resolves every DiscountRule of a dataset
*/
package generic

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Closed day range
// =============================================================================

// Period is a closed range of days [Start, End].
type Period struct {
	Start Day
	End   Day
}

// Contains returns true if the day is within the period [Start, End].
func (p Period) Contains(d Day) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []Day {
	var days []Day
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// DATE SET - Deduplicated ascending set of eligible days
// =============================================================================

// DateSet is an immutable, ascending, duplicate-free set of days.
// The zero value is an empty set.
type DateSet struct {
	days  []Day
	index map[int]struct{}
}

// NewDateSet builds a set from days in any order, dropping duplicates.
func NewDateSet(days ...Day) DateSet {
	index := make(map[int]struct{}, len(days))
	unique := make([]Day, 0, len(days))
	for _, d := range days {
		if _, ok := index[d.key()]; ok {
			continue
		}
		index[d.key()] = struct{}{}
		unique = append(unique, d)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })
	return DateSet{days: unique, index: index}
}

func (s DateSet) Contains(d Day) bool {
	_, ok := s.index[d.key()]
	return ok
}

func (s DateSet) Len() int      { return len(s.days) }
func (s DateSet) IsEmpty() bool { return len(s.days) == 0 }

// Days returns a copy of the days in ascending order.
func (s DateSet) Days() []Day {
	out := make([]Day, len(s.days))
	copy(out, s.days)
	return out
}

// Strings renders every day in the canonical layout.
func (s DateSet) Strings() []string {
	out := make([]string, len(s.days))
	for i, d := range s.days {
		out[i] = d.String()
	}
	return out
}

// Union returns a new set holding the days of both sets.
func (s DateSet) Union(other DateSet) DateSet {
	return NewDateSet(append(s.Days(), other.days...)...)
}

// =============================================================================
// PERIOD RESOLVER
// =============================================================================

const (
	rangeSeparator = ";"
	boundSeparator = "_"
)

// ResolvePeriod expands a descriptor into the eligible days of the given
// report month. The result is the ascending union of all sub-ranges.
func ResolvePeriod(descriptor string, year int, month time.Month) (DateSet, error) {
	if month < time.January || month > time.December {
		return DateSet{}, &ValidationError{
			Descriptor: descriptor,
			Reason:     "month " + strconv.Itoa(int(month)) + " out of range",
		}
	}
	if strings.TrimSpace(descriptor) == "" {
		return DateSet{}, &ValidationError{Descriptor: descriptor, Reason: "empty descriptor"}
	}

	var days []Day
	for _, segment := range strings.Split(descriptor, rangeSeparator) {
		period, err := parseSegment(descriptor, segment, year, month)
		if err != nil {
			return DateSet{}, err
		}
		days = append(days, period.Days()...)
	}
	return NewDateSet(days...), nil
}

func parseSegment(descriptor, segment string, year int, month time.Month) (Period, error) {
	invalid := func(reason string) error {
		return &ValidationError{Descriptor: descriptor, Segment: segment, Reason: reason}
	}

	bounds := strings.Split(strings.TrimSpace(segment), boundSeparator)
	if len(bounds) != 2 {
		return Period{}, invalid("expected start_end")
	}
	start, err := parseDayNumber(bounds[0])
	if err != nil {
		return Period{}, invalid("start is not a day number")
	}
	end, err := parseDayNumber(bounds[1])
	if err != nil {
		return Period{}, invalid("end is not a day number")
	}

	if start > end {
		return Period{}, invalid("start after end")
	}
	if start < 1 {
		return Period{}, invalid("start before first day of month")
	}
	if last := DaysIn(year, month); end > last {
		return Period{}, invalid("end after day " + strconv.Itoa(last))
	}

	return Period{Start: NewDay(year, month, start), End: NewDay(year, month, end)}, nil
}

// parseDayNumber accepts "5" and spreadsheet-style "5.0".
func parseDayNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	return strconv.Atoi(s)
}
