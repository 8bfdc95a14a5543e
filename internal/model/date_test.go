package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOfKeepsLocalCalendarDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	late := time.Date(2026, 3, 1, 23, 30, 0, 0, tokyo)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), DateOf(late))
}

func TestDaysBetween(t *testing.T) {
	today := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want int
	}{
		{today.AddDate(0, 0, 3), 3},
		{today.AddDate(0, 0, 4), 4},
		{today.AddDate(0, 0, -1), -1},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC), 30},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DaysBetween(today, tc.end), "end %s", FormatDate(tc.end))
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2026-01-05", FormatDate(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
}
