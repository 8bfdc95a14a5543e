package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/fanrelay/internal/relay"
)

type countingReminder struct {
	calls atomic.Int32
	err   error
}

func (c *countingReminder) Remind(ctx context.Context) (relay.BatchReport, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return relay.BatchReport{}, errors.New("missing deadline")
	}
	return relay.BatchReport{Total: 2, Sent: 1, Skipped: 1}, c.err
}

func TestValidate(t *testing.T) {
	for _, spec := range []string{"0 9 * * *", "@daily", "*/15 * * * *", "@every 1h"} {
		assert.NoError(t, Validate(spec), spec)
	}
	for _, spec := range []string{"", "61 * * * *", "0 9 * *", "tomorrow"} {
		assert.Error(t, Validate(spec), spec)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a spec", time.UTC, time.Minute, &countingReminder{})
	require.Error(t, err)
}

func TestRunAppliesTimeout(t *testing.T) {
	job := &countingReminder{}
	s, err := New("@daily", time.UTC, time.Minute, job)
	require.NoError(t, err)

	s.run(job)
	job.err = errors.New("store down")
	s.run(job)
	assert.Equal(t, int32(2), job.calls.Load())
}

func TestNextUsesLocation(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	s, err := New("0 9 * * *", loc, time.Minute, &countingReminder{})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.Next().In(loc)
	require.False(t, next.IsZero())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 0, next.Minute())
}
