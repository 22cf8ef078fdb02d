package deadline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tashkent = time.FixedZone("Asia/Tashkent", 5*60*60)

func testResolver() *Resolver {
	return NewResolver(NewZone(tashkent))
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, tashkent)
}

// Wednesday afternoon.
var wednesday = time.Date(2025, time.August, 27, 15, 30, 20, 0, tashkent)

func TestResolve(t *testing.T) {
	r := testResolver()

	tests := []struct {
		input string
		want  time.Time
	}{
		{"21:00", at(2025, 8, 27, 21, 0)},
		{"9:15", at(2025, 8, 28, 9, 15)},
		{"15:30", at(2025, 8, 28, 15, 30)},
		{"  2025-08-31 19:00 ", at(2025, 8, 31, 19, 0)},
		{"2025-8-31 9:05", at(2025, 8, 31, 9, 5)},
		{"2025-08-31", at(2025, 8, 31, 9, 0)},
		{"2024-01-10 08:00", at(2024, 1, 10, 8, 0)},
		{"in 2h", wednesday.Add(2 * time.Hour)},
		{"in 30m", wednesday.Add(30 * time.Minute)},
		{"IN 3 days", wednesday.Add(72 * time.Hour)},
		{"in 1w", wednesday.Add(7 * 24 * time.Hour)},
		{"in2hours", wednesday.Add(2 * time.Hour)},
		{"in 45 min", wednesday.Add(45 * time.Minute)},
		{"today", at(2025, 8, 28, 9, 0)},
		{"today evening", at(2025, 8, 27, 19, 0)},
		{"today 10:00", at(2025, 8, 28, 10, 0)},
		{"Today Night", at(2025, 8, 27, 22, 0)},
		{"tomorrow", at(2025, 8, 28, 9, 0)},
		{"tomorrow morning", at(2025, 8, 28, 9, 0)},
		{"tomorrow afternoon", at(2025, 8, 28, 14, 0)},
		{"tomorrow 23:45", at(2025, 8, 28, 23, 45)},
		{"tonight", at(2025, 8, 27, 22, 0)},
		{"fri evening", at(2025, 8, 29, 19, 0)},
		{"Friday", at(2025, 8, 29, 9, 0)},
		{"next mon 14:30", at(2025, 9, 1, 14, 30)},
		{"monday", at(2025, 9, 1, 9, 0)},
		{"next fri", at(2025, 8, 29, 9, 0)},
		{"wed", at(2025, 9, 3, 9, 0)},
		{"wed 18:00", at(2025, 8, 27, 18, 0)},
		{"wednesday night", at(2025, 8, 27, 22, 0)},
		{"wed 10:00", at(2025, 9, 3, 10, 0)},
		{"next wed 18:00", at(2025, 9, 3, 18, 0)},
		{"sun", at(2025, 8, 31, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := r.Resolve(tt.input, wednesday)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestResolve_Unparsable(t *testing.T) {
	r := testResolver()

	inputs := []string{
		"",
		"   ",
		"someday",
		"25:00",
		"12:60",
		"12:5",
		"2025-02-30",
		"2025-13-01 10:00",
		"2025-08-31 24:00",
		"in 2 fortnights",
		"in -2h",
		"in 99999999999 weeks",
		"in 9223372036854775808m",
		"next",
		"tomorrow 24:00",
		"tomorrow lunch",
		"next tonight",
		"fri 7pm",
	}

	for _, input := range inputs {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			got, err := r.Resolve(input, wednesday)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparsable))
			assert.True(t, got.IsZero())
		})
	}
}

func TestResolve_ClockTimeIsTodayOnlyWhenAhead(t *testing.T) {
	r := testResolver()

	for hh := 0; hh < 24; hh++ {
		for _, mm := range []int{0, 29, 30, 31, 59} {
			input := fmt.Sprintf("%d:%02d", hh, mm)
			got, err := r.Resolve(input, wednesday)
			require.NoError(t, err, input)

			today := at(2025, 8, 27, hh, mm)
			if today.After(wednesday) {
				assert.True(t, today.Equal(got), "%s: want today, got %s", input, got)
			} else {
				assert.True(t, today.AddDate(0, 0, 1).Equal(got), "%s: want tomorrow, got %s", input, got)
			}
		}
	}
}

func TestResolve_AbsoluteIgnoresNow(t *testing.T) {
	r := testResolver()
	want := at(2025, 8, 31, 19, 0)

	for _, now := range []time.Time{
		wednesday,
		at(2020, 1, 1, 0, 0),
		at(2030, 6, 15, 12, 0),
	} {
		got, err := r.Resolve("2025-08-31 19:00", now)
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
	}
}

func TestResolve_TonightAfterTenRollsOver(t *testing.T) {
	r := testResolver()
	late := time.Date(2025, time.August, 27, 22, 30, 0, 0, tashkent)

	got, err := r.Resolve("tonight", late)
	require.NoError(t, err)
	assert.True(t, at(2025, 8, 28, 22, 0).Equal(got))
}

func TestResolve_ConvertsNowIntoZone(t *testing.T) {
	r := testResolver()

	// 10:00 UTC is 15:00 in Tashkent, so 14:00 is already gone there.
	now := time.Date(2025, time.August, 27, 10, 0, 0, 0, time.UTC)
	got, err := r.Resolve("14:00", now)
	require.NoError(t, err)
	assert.True(t, at(2025, 8, 28, 14, 0).Equal(got))
}
