package schedule

import (
	"fmt"
	"time"
)

// SlotsPerDay is the number of auctionable display windows in the daily template.
const SlotsPerDay = 6

const day = 24 * time.Hour

// span is one display window of the daily template, as offsets from midnight.
type span struct {
	start time.Duration
	end   time.Duration
}

// template lists the six display windows of a broadcast day. Slot numbers
// are 1-based indices into this table.
var template = [SlotsPerDay]span{
	{0, 2 * time.Hour},
	{10 * time.Hour, 12 * time.Hour},
	{12 * time.Hour, 14 * time.Hour},
	{18 * time.Hour, 20 * time.Hour},
	{20 * time.Hour, 22 * time.Hour},
	{22 * time.Hour, 24 * time.Hour},
}

// Bidding for a day's slots runs on the previous day, 18:30 to 22:00.
const (
	bidOpenOffset  = 18*time.Hour + 30*time.Minute
	bidCloseOffset = 22 * time.Hour
)

// Window is the full schedule assignment for one slot position: when its
// auction is open and when its text is on air. Half-open intervals,
// [start, end).
type Window struct {
	Day      int // 1-based broadcast day, counted from the origin
	Number   int // 1..SlotsPerDay within the day
	BidStart time.Time
	BidEnd   time.Time
	UseStart time.Time
	UseEnd   time.Time
}

// Contains reports whether t falls inside the display window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.UseStart) && t.Before(w.UseEnd)
}

// BidOpen reports whether t falls inside the bidding window.
func (w Window) BidOpen(t time.Time) bool {
	return !t.Before(w.BidStart) && t.Before(w.BidEnd)
}

// Policy derives schedule windows from a fixed go-live origin. It is pure
// configuration: all methods are side-effect free and total over the whole
// timestamp domain.
type Policy struct {
	origin time.Time
}

// NewPolicy creates a schedule policy anchored at origin. The origin must be
// midnight-aligned in its own location.
func NewPolicy(origin time.Time) (*Policy, error) {
	if !Midnight(origin) {
		return nil, fmt.Errorf("schedule origin %s is not midnight-aligned", origin)
	}
	return &Policy{origin: origin}, nil
}

// Midnight reports whether t is exactly midnight in its location.
func Midnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// Origin returns the go-live time the policy is anchored at.
func (p *Policy) Origin() time.Time {
	return p.origin
}

// DayFor maps a timestamp to its 1-based broadcast day. Timestamps before
// the origin map to 0.
func (p *Policy) DayFor(t time.Time) int {
	if t.Before(p.origin) {
		return 0
	}
	return int(t.Sub(p.origin)/day) + 1
}

// NumberFor maps a timestamp to the 1-based template window containing it,
// or 0 if the timestamp precedes the origin or falls in a daily gap.
func (p *Policy) NumberFor(t time.Time) int {
	if t.Before(p.origin) {
		return 0
	}
	intoDay := t.Sub(p.origin) % day
	for i, s := range template {
		if intoDay >= s.start && intoDay < s.end {
			return i + 1
		}
	}
	return 0
}

// WindowAt returns the schedule window for the slot at the given 0-based
// creation position. Positions fill the template in order, six per day.
//
// Bidding for a day's slots runs 18:30-22:00 on the previous day. The first
// day has no previous broadcast day, so its bidding window opens one full
// day earlier while still closing at origin minus one day, 22:00.
func (p *Policy) WindowAt(position int) Window {
	d := position / SlotsPerDay // 0-based day offset
	n := position % SlotsPerDay

	dayStart := p.origin.Add(time.Duration(d) * day)
	bidBase := dayStart.Add(-day)

	w := Window{
		Day:      d + 1,
		Number:   n + 1,
		BidStart: bidBase.Add(bidOpenOffset),
		BidEnd:   bidBase.Add(bidCloseOffset),
		UseStart: dayStart.Add(template[n].start),
		UseEnd:   dayStart.Add(template[n].end),
	}
	if d == 0 {
		w.BidStart = w.BidStart.Add(-day)
	}
	return w
}
