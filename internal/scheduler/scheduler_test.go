package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunOnce_RunsJobsInRegistrationOrder(t *testing.T) {
	var order []string
	record := func(name string) Job {
		return NewJob(name, func(ctx context.Context, now time.Time) (int, error) {
			order = append(order, name)
			return 0, nil
		})
	}

	s := New(time.Hour, nil, record("billing"), record("overdue"), record("renewal"))
	s.RunOnce(context.Background(), time.Now())

	assert.Equal(t, []string{"billing", "overdue", "renewal"}, order)
}

func TestRunOnce_FailedJobDoesNotStopTheRest(t *testing.T) {
	ran := false
	failing := NewJob("billing", func(ctx context.Context, now time.Time) (int, error) {
		return 0, errors.New("db down")
	})
	next := NewJob("overdue", func(ctx context.Context, now time.Time) (int, error) {
		ran = true
		return 0, nil
	})

	s := New(time.Hour, nil, failing, next)
	s.RunOnce(context.Background(), time.Now())

	assert.True(t, ran)
}

func TestRunOnce_StopsOnCancelledContext(t *testing.T) {
	ran := false
	job := NewJob("billing", func(ctx context.Context, now time.Time) (int, error) {
		ran = true
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	New(time.Hour, nil, job).RunOnce(ctx, time.Now())
	assert.False(t, ran)
}
