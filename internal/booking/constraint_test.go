package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(day, hour, min int) time.Time {
	// March 2024: the 4th is a Monday.
	return time.Date(2024, 3, day, hour, min, 0, 0, time.UTC)
}

func allDays() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}

func weekdaysOnly() [7]bool {
	return [7]bool{true, true, true, true, true, false, false}
}

func TestValidateMinuteUnitPassThrough(t *testing.T) {
	c := &Constraint{Unit: UnitMinute, AllowedDays: allDays()}

	start, end, err := c.Validate(ts(5, 11, 17), ts(5, 15, 40))
	require.NoError(t, err)
	assert.Equal(t, ts(5, 11, 17), start)
	assert.Equal(t, ts(5, 15, 40), end)
}

func TestValidateHourUnitTruncatesMinutes(t *testing.T) {
	c := &Constraint{Unit: UnitHour, AllowedDays: allDays()}

	start, end, err := c.Validate(ts(5, 11, 17), ts(5, 15, 40))
	require.NoError(t, err)
	assert.Equal(t, ts(5, 11, 0), start)
	assert.Equal(t, ts(5, 15, 0), end)
}

func TestValidateDayUnitSnapsToWorkingDay(t *testing.T) {
	c := &Constraint{Unit: UnitDay, AllowedDays: allDays()}

	start, end, err := c.Validate(ts(5, 11, 17), ts(5, 15, 40))
	require.NoError(t, err)
	assert.Equal(t, ts(5, 9, 0), start)
	assert.Equal(t, ts(5, 18, 0), end)
}

func TestValidateHalfDay(t *testing.T) {
	c := &Constraint{Unit: UnitHalfDay, AllowedDays: allDays()}

	tests := []struct {
		name       string
		start, end time.Time
		wantStart  time.Time
		wantEnd    time.Time
		wantErr    string
	}{
		{
			name:  "exact morning slot unchanged",
			start: ts(5, 9, 0), end: ts(5, 13, 0),
			wantStart: ts(5, 9, 0), wantEnd: ts(5, 13, 0),
		},
		{
			name:  "mid-morning snaps outward",
			start: ts(5, 10, 15), end: ts(5, 12, 40),
			wantStart: ts(5, 9, 0), wantEnd: ts(5, 13, 0),
		},
		{
			name:  "afternoon slot",
			start: ts(5, 14, 30), end: ts(5, 17, 0),
			wantStart: ts(5, 14, 0), wantEnd: ts(5, 18, 0),
		},
		{
			name:  "morning into afternoon spans both",
			start: ts(5, 10, 0), end: ts(5, 16, 0),
			wantStart: ts(5, 9, 0), wantEnd: ts(5, 18, 0),
		},
		{
			name:  "lunch start rejected",
			start: ts(5, 13, 30), end: ts(5, 17, 0),
			wantErr: "lunch break",
		},
		{
			name:  "early start rejected",
			start: ts(5, 7, 0), end: ts(5, 12, 0),
			wantErr: "before 9am",
		},
		{
			name:  "late start rejected",
			start: ts(5, 18, 30), end: ts(5, 19, 0),
			wantErr: "after 6pm",
		},
		{
			name:  "lunch end rejected",
			start: ts(5, 9, 30), end: ts(5, 14, 0),
			wantErr: "lunch break",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := c.Validate(tt.start, tt.end)
			if tt.wantErr != "" {
				require.Error(t, err)
				var cv *ConstraintViolation
				require.ErrorAs(t, err, &cv)
				assert.Contains(t, cv.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestValidateWeekUnit(t *testing.T) {
	c := &Constraint{Unit: UnitWeek, AllowedDays: allDays()}

	tests := []struct {
		name       string
		start, end time.Time
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{
			name:  "midweek rolls back to Monday and on to Friday",
			start: ts(6, 11, 0), end: ts(7, 16, 0),
			wantStart: ts(4, 9, 0), wantEnd: ts(8, 18, 0),
		},
		{
			name:  "Monday to Friday unchanged",
			start: ts(4, 9, 0), end: ts(8, 18, 0),
			wantStart: ts(4, 9, 0), wantEnd: ts(8, 18, 0),
		},
		{
			name:  "weekend end rolls on to the next Friday",
			start: ts(4, 9, 0), end: ts(9, 12, 0),
			wantStart: ts(4, 9, 0), wantEnd: ts(15, 18, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := c.Validate(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	constraints := []*Constraint{
		{Unit: UnitMinute, AllowedDays: allDays()},
		{Unit: UnitHour, AllowedDays: allDays()},
		{Unit: UnitHalfDay, AllowedDays: allDays()},
		{Unit: UnitDay, AllowedDays: allDays()},
		{Unit: UnitWeek, AllowedDays: allDays()},
	}

	for _, c := range constraints {
		t.Run(string(c.Unit), func(t *testing.T) {
			start1, end1, err := c.Validate(ts(5, 10, 45), ts(6, 16, 20))
			require.NoError(t, err)

			start2, end2, err := c.Validate(start1, end1)
			require.NoError(t, err)
			assert.Equal(t, start1, start2)
			assert.Equal(t, end1, end2)
		})
	}
}

func TestValidateAllowedDays(t *testing.T) {
	c := &Constraint{Unit: UnitMinute, AllowedDays: weekdaysOnly()}

	// 9th and 10th of March 2024 are Saturday and Sunday.
	_, _, err := c.Validate(ts(9, 10, 0), ts(9, 12, 0))
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "Saturday")
	assert.Contains(t, cv.Message, "Monday-Friday")

	_, _, err = c.Validate(ts(8, 10, 0), ts(10, 12, 0))
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "Sunday")
}

func TestValidateAllowedDaysCheckedBeforeAlignment(t *testing.T) {
	// A week booking requested on a Saturday must be rejected even though
	// alignment would move the start to a Monday.
	c := &Constraint{Unit: UnitWeek, AllowedDays: weekdaysOnly()}

	_, _, err := c.Validate(ts(9, 10, 0), ts(13, 12, 0))
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "Saturday")
}

func TestValidateDurationBounds(t *testing.T) {
	c := &Constraint{Unit: UnitMinute, AllowedDays: allDays(), MinMinutes: 30, MaxMinutes: 120}

	_, _, err := c.Validate(ts(5, 10, 0), ts(5, 10, 30))
	assert.NoError(t, err, "exactly the minimum is allowed")

	_, _, err = c.Validate(ts(5, 10, 0), ts(5, 10, 29))
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "too short")

	_, _, err = c.Validate(ts(5, 10, 0), ts(5, 12, 0))
	assert.NoError(t, err, "exactly the maximum is allowed")

	_, _, err = c.Validate(ts(5, 10, 0), ts(5, 12, 1))
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "too long")
}

func TestValidateTimeRange(t *testing.T) {
	c := &Constraint{
		Unit:        UnitHour,
		AllowedDays: allDays(),
		RangeStart:  &TimeOfDay{Hour: 9},
		RangeEnd:    &TimeOfDay{Hour: 17},
	}

	_, _, err := c.Validate(ts(5, 9, 0), ts(5, 17, 0))
	assert.NoError(t, err)

	var cv *ConstraintViolation

	_, _, err = c.Validate(ts(5, 8, 0), ts(5, 12, 0))
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "starts before 09:00AM")

	_, _, err = c.Validate(ts(5, 17, 0), ts(5, 18, 0))
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "starts after 05:00PM")

	_, _, err = c.Validate(ts(5, 10, 0), ts(5, 18, 0))
	require.ErrorAs(t, err, &cv)
	assert.Contains(t, cv.Message, "ends after 05:00PM")
}

func TestValidateRangeIgnoredForCoarseUnits(t *testing.T) {
	c := &Constraint{
		Unit:        UnitDay,
		AllowedDays: allDays(),
		RangeStart:  &TimeOfDay{Hour: 10},
		RangeEnd:    &TimeOfDay{Hour: 16},
	}

	start, end, err := c.Validate(ts(5, 11, 0), ts(5, 15, 0))
	require.NoError(t, err)
	assert.Equal(t, ts(5, 9, 0), start)
	assert.Equal(t, ts(5, 18, 0), end)
}

func TestValidateSwapsReversedPair(t *testing.T) {
	c := &Constraint{Unit: UnitMinute, AllowedDays: allDays()}

	start, end, err := c.Validate(ts(5, 15, 0), ts(5, 11, 0))
	require.NoError(t, err)
	assert.True(t, start.Before(end))
}

func TestAvailableDaysString(t *testing.T) {
	c := &Constraint{AllowedDays: allDays()}
	assert.Equal(t, "any day", c.AvailableDaysString())

	c.AllowedDays = weekdaysOnly()
	assert.Equal(t, "Monday-Friday", c.AvailableDaysString())

	c.AllowedDays = [7]bool{true, false, true, false, false, false, false}
	assert.Equal(t, "Monday, Wednesday", c.AvailableDaysString())
}

func TestMinutesToString(t *testing.T) {
	assert.Equal(t, "30 minutes", minutesToString(30))
	assert.Equal(t, "1 hour", minutesToString(60))
	assert.Equal(t, "2 hours 30 minutes", minutesToString(150))
	assert.Equal(t, "1 day 1 hour 1 minute", minutesToString(24*60+61))
}
