package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func noop(context.Context) error { return nil }

func TestScheduleValidation(t *testing.T) {
	s := NewScheduler(quietLogger())

	require.Error(t, s.Start(), "start without jobs")
	require.Error(t, s.Schedule("bad", "not a cron spec", time.Minute, noop))

	require.NoError(t, s.Schedule("batch", "0 */2 * * *", time.Minute, noop))
	require.NoError(t, s.Schedule("settle", "@daily", time.Minute, noop))
	require.Error(t, s.Schedule("batch", "@hourly", time.Minute, noop))

	names := s.Jobs()
	sort.Strings(names)
	assert.Equal(t, []string{"batch", "settle"}, names)

	require.NoError(t, s.RemoveJob("settle"))
	assert.Error(t, s.RemoveJob("settle"))
	assert.Equal(t, []string{"batch"}, s.Jobs())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(quietLogger())
	require.NoError(t, s.Schedule("batch", "@hourly", time.Minute, noop))

	assert.True(t, s.GetNextRun().IsZero())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.Schedule("late", "@hourly", time.Minute, noop))
	assert.Error(t, s.RemoveJob("batch"))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())
}

func TestJobRuns(t *testing.T) {
	s := NewScheduler(quietLogger())
	ran := make(chan time.Duration, 4)
	require.NoError(t, s.Schedule("settle", "@every 1s", 5*time.Second, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			return errors.New("missing deadline")
		}
		ran <- time.Until(deadline)
		return errors.New("failures are logged, not fatal")
	}))
	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case remaining := <-ran:
		assert.LessOrEqual(t, remaining, 5*time.Second)
		assert.Greater(t, remaining, time.Duration(0))
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}
