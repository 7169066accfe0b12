package scene

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/storyworld/internal/world"
)

var epoch = time.Date(2017, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSchedulerRunsDueEntriesInOrder(t *testing.T) {
	s := NewScheduler(epoch)
	var ran []string
	add := func(d time.Duration, name string) Token {
		return s.After(d, 0, func() error {
			ran = append(ran, name)
			return nil
		})
	}
	add(2*time.Second, "c")
	add(time.Second, "a")
	add(time.Second, "b")
	add(5*time.Second, "late")

	next, ok := s.NextWake()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Second), next)

	require.NoError(t, s.Advance(epoch.Add(500*time.Millisecond)))
	assert.Empty(t, ran)

	require.NoError(t, s.Advance(epoch.Add(2*time.Second)))
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, epoch.Add(2*time.Second), s.Now())
}

func TestSchedulerRunsEntriesScheduledByCallbacks(t *testing.T) {
	s := NewScheduler(epoch)
	var ran []string
	s.After(time.Second, 0, func() error {
		ran = append(ran, "first")
		s.After(0, 0, func() error {
			ran = append(ran, "chained")
			return nil
		})
		s.After(time.Hour, 0, func() error {
			ran = append(ran, "much later")
			return nil
		})
		return nil
	})
	require.NoError(t, s.Advance(epoch.Add(time.Second)))
	assert.Equal(t, []string{"first", "chained"}, ran)
	assert.Equal(t, 1, s.Pending())
}

func TestSchedulerClockNeverGoesBack(t *testing.T) {
	s := NewScheduler(epoch)
	require.NoError(t, s.Advance(epoch.Add(time.Minute)))
	require.NoError(t, s.Advance(epoch))
	assert.Equal(t, epoch.Add(time.Minute), s.Now())
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler(epoch)
	ran := false
	tok := s.After(time.Second, 0, func() error {
		ran = true
		return nil
	})
	assert.NotZero(t, tok)
	assert.True(t, s.Cancel(tok))
	assert.False(t, s.Cancel(tok))
	require.NoError(t, s.Advance(epoch.Add(time.Hour)))
	assert.False(t, ran)
	_, ok := s.NextWake()
	assert.False(t, ok)
}

func TestSchedulerCancelOwner(t *testing.T) {
	s := NewScheduler(epoch)
	owner := world.Handle(1<<32 | 3)
	count := 0
	for i := 0; i < 3; i++ {
		s.After(time.Duration(i)*time.Second, owner, func() error {
			count++
			return nil
		})
	}
	s.After(time.Second, 0, func() error {
		count += 10
		return nil
	})

	assert.Equal(t, 3, s.CancelOwner(owner))
	require.NoError(t, s.Advance(epoch.Add(time.Hour)))
	assert.Equal(t, 10, count)
}

func TestSchedulerJoinsErrors(t *testing.T) {
	s := NewScheduler(epoch)
	errA := errors.New("a")
	errB := errors.New("b")
	ranLast := false
	s.After(time.Second, 0, func() error { return errA })
	s.After(time.Second, 0, func() error { return errB })
	s.After(time.Second, 0, func() error {
		ranLast = true
		return nil
	})

	err := s.Advance(epoch.Add(time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, ranLast)
}
