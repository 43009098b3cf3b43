package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeCalendar_StartRule(t *testing.T) {
	cases := []struct {
		year  int
		dow   time.Weekday
		start time.Time
	}{
		// July 1 2024 is a Monday → last Sunday in June.
		{2024, time.Monday, date(2024, time.June, 30)},
		// July 1 2025 is a Tuesday → last Sunday in June.
		{2025, time.Tuesday, date(2025, time.June, 29)},
		// July 1 2026 is a Wednesday → last Sunday in June.
		{2026, time.Wednesday, date(2026, time.June, 28)},
		// July 1 2027 is a Thursday → first Sunday in July.
		{2027, time.Thursday, date(2027, time.July, 4)},
		// July 1 2022 is a Friday → first Sunday in July.
		{2022, time.Friday, date(2022, time.July, 3)},
		// July 1 2023 is a Saturday → first Sunday in July.
		{2023, time.Saturday, date(2023, time.July, 2)},
		// July 1 2029 is a Sunday → July 1 itself.
		{2029, time.Sunday, date(2029, time.July, 1)},
	}

	for _, tc := range cases {
		cal := ComputeCalendar(tc.year)
		require.Equal(t, tc.dow, date(tc.year, time.July, 1).Weekday(), "year %d", tc.year)
		assert.Equal(t, tc.start, cal.NFStart(), "year %d start", tc.year)
		assert.Equal(t, time.Sunday, cal.NFStart().Weekday(), "year %d starts on Sunday", tc.year)
	}
}

// TestComputeCalendar_Block1Length pins block 1's span to the day-of-week
// table: exactly 28 days for Mon/Sat/Sun, short for Tue/Wed, long for
// Thu/Fri.
func TestComputeCalendar_Block1Length(t *testing.T) {
	cases := []struct {
		year int
		dow  time.Weekday
		days int
	}{
		{2024, time.Monday, 28},
		{2025, time.Tuesday, 26},
		{2026, time.Wednesday, 25},
		{2027, time.Thursday, 31},
		{2022, time.Friday, 30},
		{2023, time.Saturday, 28},
		{2029, time.Sunday, 28},
	}
	for _, tc := range cases {
		cal := ComputeCalendar(tc.year)
		b1 := cal.Blocks[0]
		assert.Equal(t, tc.days, b1.NumDays(), "year %d (%s)", tc.year, tc.dow)
		switch tc.dow {
		case time.Tuesday, time.Wednesday:
			assert.Less(t, b1.NumDays(), 28, "year %d block 1 under 4 weeks", tc.year)
		case time.Thursday, time.Friday:
			assert.Greater(t, b1.NumDays(), 28, "year %d block 1 over 4 weeks", tc.year)
		default:
			assert.Equal(t, 28, b1.NumDays(), "year %d block 1 exactly 4 weeks", tc.year)
		}
	}
}

func TestComputeCalendar_ThursdayYear(t *testing.T) {
	// July 1 2027 falls on a Thursday: NF starts Sunday July 4, block 1
	// covers July 1 through July 31 (over four weeks), and block 13
	// truncates at June 30 2028.
	cal := ComputeCalendar(2027)
	require.Len(t, cal.Blocks, 13)

	b1 := cal.Blocks[0]
	assert.Equal(t, date(2027, time.July, 1), b1.Start)
	assert.Equal(t, date(2027, time.July, 31), b1.End)
	assert.Greater(t, b1.NumDays(), 28)
	assert.Equal(t, 5, b1.NumWeeks(), "block 1 runs longer than 4 weeks")

	for _, b := range cal.Blocks[1:12] {
		assert.Equal(t, 28, b.NumDays(), "block %d is 28 days", b.Number)
		if b.Number > 2 {
			assert.Equal(t, b.Start, cal.Blocks[b.Number-2].End.AddDate(0, 0, 1), "block %d contiguous", b.Number)
		}
	}
	// Block 2 begins four weeks after the NF-start Sunday, the day after
	// block 1 ends.
	assert.Equal(t, date(2027, time.August, 1), cal.Blocks[1].Start)

	b13 := cal.Blocks[12]
	assert.Equal(t, date(2028, time.June, 30), b13.End)
	// 12 blocks of 28 days from July 4 end June 3 2028; block 13 runs
	// June 4 - June 30, shorter than four full weeks.
	assert.Equal(t, date(2028, time.June, 4), b13.Start)
	assert.Less(t, b13.NumDays(), 28)
}

func TestComputeCalendar_TuesdayYear(t *testing.T) {
	// July 1 2025 is a Tuesday: NF starts Sunday June 29, block 1 covers
	// July 1 through July 26 — a few days under four weeks, with the June
	// ramp days left to the outgoing year.
	cal := ComputeCalendar(2025)
	b1 := cal.Blocks[0]
	assert.Equal(t, date(2025, time.July, 1), b1.Start)
	assert.Equal(t, date(2025, time.July, 26), b1.End)
	assert.Less(t, b1.NumDays(), 28)
	assert.Equal(t, date(2025, time.July, 27), cal.Blocks[1].Start)
}

func TestCalendar_WeekOf(t *testing.T) {
	cal := ComputeCalendar(2024) // NF grid starts June 30 2024
	assert.Equal(t, 1, cal.WeekOf(date(2024, time.June, 30)))
	assert.Equal(t, 1, cal.WeekOf(date(2024, time.July, 6)))
	assert.Equal(t, 2, cal.WeekOf(date(2024, time.July, 7)))
	assert.Equal(t, 1, cal.WeekOf(date(2024, time.June, 1)), "clamped low")
	assert.Equal(t, 52, cal.WeekOf(date(2025, time.June, 29)), "clamped high")
}

func TestCalendar_BlockOf(t *testing.T) {
	cal := ComputeCalendar(2024)
	assert.Equal(t, 1, cal.BlockOf(date(2024, time.July, 1)))
	assert.Equal(t, 2, cal.BlockOf(cal.Blocks[1].Start))
	assert.Equal(t, 13, cal.BlockOf(date(2025, time.June, 30)))
	assert.Zero(t, cal.BlockOf(date(2024, time.January, 1)), "outside the year")
}

func TestCalendar_ChristmasBlock(t *testing.T) {
	cal := ComputeCalendar(2024)
	b := cal.ChristmasBlock()
	require.NotZero(t, b)
	xmas := date(2024, time.December, 25)
	blk := cal.Blocks[b-1]
	assert.False(t, xmas.Before(blk.Start) || xmas.After(blk.End))
}

// The weekly grid is anchored on the NF-start Sunday, so the fixed
// 4-weeks-per-block arithmetic holds for every block even in years where
// block 1's date range flexes: week 1 begins on the NF Sunday and block 2
// always begins at week 5.
func TestWeekToBlock_AgreesWithCalendar(t *testing.T) {
	for _, year := range []int{2024, 2025, 2027} {
		cal := ComputeCalendar(year)
		for _, b := range cal.Blocks[1:] {
			weekOfStart := cal.WeekOf(b.Start)
			assert.Equal(t, b.Number, WeekToBlock(weekOfStart),
				"year %d block %d starts in its own grid block", year, b.Number)
		}
	}
}

func TestWeekToBlock(t *testing.T) {
	assert.Equal(t, 1, WeekToBlock(1))
	assert.Equal(t, 1, WeekToBlock(4))
	assert.Equal(t, 2, WeekToBlock(5))
	assert.Equal(t, 13, WeekToBlock(52))
	assert.Equal(t, []int{9, 10, 11, 12}, BlockWeeks(3))
}
