package calendar

import (
	"sync"
	"time"
)

// epoch is the base date for trading-day sequence numbers. Any fixed trading
// day works; only distances between sequence numbers are meaningful.
var epoch = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// Calendar answers session questions for NYSE full-session trading days:
// weekdays minus exchange holidays. Half days still count as sessions, which
// is all the cooldown arithmetic needs.
type Calendar struct {
	mu       sync.Mutex
	holidays map[int]map[time.Time]struct{}
}

// New creates a Calendar. Holiday tables are computed lazily per year.
func New() *Calendar {
	return &Calendar{holidays: make(map[int]map[time.Time]struct{})}
}

// Normalize strips the clock and zone, leaving a UTC midnight date.
func Normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// IsTradingDay reports whether d is an exchange session.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	d = Normalize(d)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidaySet(d.Year())[d]
	return !holiday
}

// ThirdFriday reports whether d is the third Friday of its month.
func (c *Calendar) ThirdFriday(d time.Time) bool {
	d = Normalize(d)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	third := first.AddDate(0, 0, offset+14)
	return d.Equal(third)
}

// TradingDaysBetween counts sessions in (from, to]. A same-day call returns
// zero; the next session after from returns one.
func (c *Calendar) TradingDaysBetween(from, to time.Time) int {
	from, to = Normalize(from), Normalize(to)
	if !to.After(from) {
		return 0
	}
	n := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			n++
		}
	}
	return n
}

// SequenceNumber returns the number of sessions since the epoch, so that
// cooldown distances can be computed as simple differences.
func (c *Calendar) SequenceNumber(d time.Time) int {
	return c.TradingDaysBetween(epoch, Normalize(d))
}

// PreviousTradingDay returns the most recent session strictly before d.
func (c *Calendar) PreviousTradingDay(d time.Time) time.Time {
	d = Normalize(d).AddDate(0, 0, -1)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// LastTradingDayOnOrBefore returns d itself when d is a session, otherwise
// the most recent session before it.
func (c *Calendar) LastTradingDayOnOrBefore(d time.Time) time.Time {
	d = Normalize(d)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func (c *Calendar) holidaySet(year int) map[time.Time]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.holidays[year]; ok {
		return set
	}
	set := make(map[time.Time]struct{})
	for _, d := range exchangeHolidays(year) {
		if d.Year() == year {
			set[d] = struct{}{}
		}
	}
	// New Year's Day of the following year observed on Dec 31.
	for _, d := range exchangeHolidays(year + 1) {
		if d.Year() == year {
			set[d] = struct{}{}
		}
	}
	c.holidays[year] = set
	return set
}

// exchangeHolidays lists NYSE holidays for one year, observance shifted.
func exchangeHolidays(year int) []time.Time {
	date := func(m time.Month, day int) time.Time {
		return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
	}

	hs := []time.Time{
		observed(date(time.January, 1)),
		nthWeekday(year, time.January, time.Monday, 3),   // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),  // Washington's Birthday
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday),          // Memorial Day
		observed(date(time.July, 4)),                      // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(time.December, 25)),
	}
	if year >= 2022 {
		hs = append(hs, observed(date(time.June, 19))) // Juneteenth
	}
	return hs
}

// observed shifts weekend holidays: Saturday to Friday, Sunday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	last := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// goodFriday is two days before Easter Sunday (Meeus/Jones/Butcher).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
