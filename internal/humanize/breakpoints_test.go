package humanize

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventfeed/internal/model"
)

// scanMidnight finds the earliest instant whose wall clock in loc reads
// 00:00 on the civil date, minute by minute.
func scanMidnight(civil time.Time, loc *time.Location) (time.Time, bool) {
	y, m, d := civil.Date()
	end := civil.Add(36 * time.Hour)
	for ts := civil.Add(-36 * time.Hour); ts.Before(end); ts = ts.Add(time.Minute) {
		if local := ts.In(loc); isWall(local, y, m, d) {
			return local, true
		}
	}
	return time.Time{}, false
}

func TestLocalMidnightMatchesScan(t *testing.T) {
	cases := []struct {
		zone string
		date string
	}{
		{"Europe/Paris", "2001-03-25"},
		{"Europe/Paris", "2001-10-28"},
		{"America/Sao_Paulo", "2018-11-04"},
		{"America/Sao_Paulo", "2019-02-16"},
		{"America/Sao_Paulo", "2019-02-17"},
		{"America/Havana", "2019-03-10"},
		{"America/Havana", "2019-11-03"},
		{"America/Santiago", "2022-09-11"},
		{"Asia/Beirut", "2019-10-27"},
		{"Pacific/Apia", "2011-12-30"},
		{"Pacific/Apia", "2011-12-31"},
		{"Asia/Tokyo", "2001-01-01"},
		{"UTC", "2024-02-29"},
	}
	for _, tc := range cases {
		loc, err := time.LoadLocation(tc.zone)
		require.NoError(t, err)
		civil, err := time.Parse(time.DateOnly, tc.date)
		require.NoError(t, err)

		want, wantOK := scanMidnight(civil, loc)
		got, gotOK := localMidnight(civil, loc)

		assert.Equal(t, wantOK, gotOK, "%s %s", tc.zone, tc.date)
		if wantOK && gotOK {
			assert.True(t, want.Equal(got), "%s %s: want %v, got %v", tc.zone, tc.date, want, got)
		}
	}
}

func TestSkippedMidnightFallsBack(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	civil := time.Date(2018, time.November, 4, 0, 0, 0, 0, time.UTC)
	if _, ok := scanMidnight(civil, loc); ok {
		t.Skip("tzdata has no midnight gap on this date")
	}

	h := New(WithLocation(loc))
	now := time.Date(2018, time.November, 3, 12, 0, 0, 0, loc)
	begins := time.Date(2018, time.November, 10, 15, 30, 0, 0, loc)
	e := model.Event{
		BeginsOn: model.NewDateTime(begins),
		EndsOn:   model.NewDateTime(begins.Add(time.Hour)),
	}

	got := h.BeginningAt(e, now)
	assert.Equal(t, model.Later(begins.Format(layoutAbsolute)), got)
}

func TestAddMonths(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}

	assert.Equal(t, d(2001, time.February, 28), addMonths(d(2001, time.January, 31), 1))
	assert.Equal(t, d(2004, time.February, 29), addMonths(d(2004, time.January, 30), 1))
	assert.Equal(t, d(2002, time.January, 15), addMonths(d(2001, time.December, 15), 1))
	assert.Equal(t, d(2005, time.February, 28), addMonths(d(2004, time.February, 29), 12))
	assert.Equal(t, d(2001, time.April, 30), addMonths(d(2001, time.March, 31), 1))
}
