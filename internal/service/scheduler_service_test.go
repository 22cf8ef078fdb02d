package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 9 * * *", spec)

	spec, err = buildDailySpec(" 23:59 ")
	require.NoError(t, err)
	assert.Equal(t, "0 59 23 * * *", spec)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildIntervalSpec(t *testing.T) {
	spec, err := buildIntervalSpec(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "@every 60s", spec)

	spec, err = buildIntervalSpec(200 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", spec)

	_, err = buildIntervalSpec(0)
	assert.Error(t, err)
}

func TestSchedulerService_Register(t *testing.T) {
	s := NewSchedulerService(tashkent, nil)

	_, err := s.ScheduleInterval(time.Minute, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDaily("09:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDaily("9am", func() {})
	assert.Error(t, err)

	s.Start()
	s.Stop()
}
