package date

import "fmt"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Around returns the range of days that are at most 'days' away from d.
func Around(d Date, days int) Range { return Range{From: d.Add(-days), To: d.Add(days)} }

// Year returns the calendar year as a range.
func Year(y int) Range { return Range{From: New(y, 1, 1), To: New(y, 12, 31)} }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
