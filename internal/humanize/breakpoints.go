package humanize

import "time"

// breakpoints are local midnights after "today" that separate the label
// buckets. Every bucket is half-open: a start exactly on a breakpoint falls
// into the later bucket.
type breakpoints struct {
	midnight  time.Time
	nextWeek  time.Time
	nextMonth time.Time
	nextYear  time.Time
}

// newBreakpoints anchors on the local midnight of now's calendar day. It
// fails when one of the midnights does not exist as a local wall time, as
// happens on DST transitions that skip midnight.
func newBreakpoints(now time.Time) (breakpoints, bool) {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if _, ok := localMidnight(today, loc); !ok {
		return breakpoints{}, false
	}

	var bp breakpoints
	var ok bool
	if bp.midnight, ok = localMidnight(today.AddDate(0, 0, 1), loc); !ok {
		return breakpoints{}, false
	}
	if bp.nextWeek, ok = localMidnight(today.AddDate(0, 0, daysInWeekBreak), loc); !ok {
		return breakpoints{}, false
	}
	if bp.nextMonth, ok = localMidnight(addMonths(today, 1), loc); !ok {
		return breakpoints{}, false
	}
	if bp.nextYear, ok = localMidnight(addMonths(today, 12), loc); !ok {
		return breakpoints{}, false
	}
	return bp, true
}

// addMonths adds calendar months to a civil date, clamping the day to the
// end of the target month (Jan 31 + 1 month = Feb 28 or 29).
func addMonths(civil time.Time, months int) time.Time {
	y, m, d := civil.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// localMidnight resolves the wall time 00:00 of the civil date (given as a
// UTC midnight) in loc. An ambiguous wall time resolves to the earliest
// matching instant; a skipped one reports false.
//
// time.Date normalizes skipped times and picks an unspecified instant for
// repeated ones, so candidates are derived from the offsets in effect a day
// either side and checked against the requested wall clock.
func localMidnight(civil time.Time, loc *time.Location) (time.Time, bool) {
	y, m, d := civil.Date()
	guess := time.Date(y, m, d, 0, 0, 0, 0, loc)

	var best time.Time
	found := false
	for _, probe := range []time.Time{guess.Add(-24 * time.Hour), guess, guess.Add(24 * time.Hour)} {
		_, offset := probe.Zone()
		candidate := civil.Add(-time.Duration(offset) * time.Second).In(loc)
		if !isWall(candidate, y, m, d) {
			continue
		}
		if !found || candidate.Before(best) {
			best = candidate
			found = true
		}
	}
	return best, found
}

func isWall(t time.Time, y int, m time.Month, d int) bool {
	ty, tm, td := t.Date()
	hh, mm, ss := t.Clock()
	return ty == y && tm == m && td == d && hh == 0 && mm == 0 && ss == 0 && t.Nanosecond() == 0
}
