// Package humanize turns an event start into a label relative to now:
// "Now" while the event runs, then the start time for today, the weekday
// within a week, weekday and day within a month, month and day within a
// year, and a full date beyond.
package humanize

import (
	"time"

	"eventfeed/internal/clock"
	"eventfeed/internal/model"
)

const (
	layoutToday     = "15:04"
	layoutWeek      = "Monday"
	layoutMonth     = "Monday _2"
	layoutYear      = "January _2"
	layoutLater     = "January _2 2006"
	layoutAbsolute  = "2006-01-02 15:04:05 -07:00"
	daysInWeekBreak = 7
)

// Humanizer computes relative labels. The zero value is not usable; use New.
type Humanizer struct {
	clock clock.Clock
	loc   *time.Location
}

type Option func(*Humanizer)

// WithClock overrides the source of "now".
func WithClock(c clock.Clock) Option {
	return func(h *Humanizer) {
		h.clock = c
	}
}

// WithLocation sets the zone in which calendar boundaries and labels are
// computed. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(h *Humanizer) {
		if loc != nil {
			h.loc = loc
		}
	}
}

func New(opts ...Option) *Humanizer {
	h := &Humanizer{
		clock: clock.NewSystem(),
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Location returns the display zone.
func (h *Humanizer) Location() *time.Location {
	return h.loc
}

// Beginning describes when e starts relative to the clock's now.
func (h *Humanizer) Beginning(e model.Event) model.HumanReadableDateTime {
	return h.BeginningAt(e, h.clock.Now())
}

// BeginningAt is Beginning with an explicit reference instant.
func (h *Humanizer) BeginningAt(e model.Event, now time.Time) model.HumanReadableDateTime {
	begins := e.BeginsOn.Time()
	if begins.Before(now) && now.Before(e.EndsOn.Time()) {
		return model.Now
	}

	local := begins.In(h.loc)

	bp, ok := newBreakpoints(now.In(h.loc))
	if !ok {
		return model.Later(local.Format(layoutAbsolute))
	}

	switch {
	case local.Before(bp.midnight):
		return model.Later(local.Format(layoutToday))
	case local.Before(bp.nextWeek):
		return model.Later(local.Format(layoutWeek))
	case local.Before(bp.nextMonth):
		return model.Later(local.Format(layoutMonth))
	case local.Before(bp.nextYear):
		return model.Later(local.Format(layoutYear))
	default:
		return model.Later(local.Format(layoutLater))
	}
}
