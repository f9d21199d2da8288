package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("10:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 10 * * *", spec)

	spec, err = buildDailySpec(" 0:00 ")
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 * * *", spec)

	for _, bad := range []string{"", "10", "24:00", "12:60", "aa:bb", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerService_Register(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewSchedulerService(time.UTC, log)

	_, err := s.ScheduleDaily("09:30", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(1500*time.Millisecond, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(0, func() {})
	assert.Error(t, err)

	assert.Equal(t, 2, s.Entries())
}
