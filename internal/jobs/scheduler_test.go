package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type jobFunc func(ctx context.Context) error

func (f jobFunc) Run(ctx context.Context) error { return f(ctx) }

func TestSchedulerRunOnce(t *testing.T) {
	s := NewScheduler(zap.NewNop(), time.Second)

	var ran bool
	require.NoError(t, s.Add("heartbeat", "*/5 * * * *", jobFunc(func(ctx context.Context) error {
		ran = true
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})))
	require.NoError(t, s.Add("report", "0 6 * * 1", jobFunc(func(context.Context) error {
		return assert.AnError
	})))

	assert.Equal(t, []string{"heartbeat", "report"}, s.Names())

	require.NoError(t, s.RunOnce(context.Background(), "heartbeat"))
	assert.True(t, ran)

	assert.ErrorIs(t, s.RunOnce(context.Background(), "report"), assert.AnError)
	assert.ErrorIs(t, s.RunOnce(context.Background(), "missing"), ErrUnknownJob)
}

func TestSchedulerRejectsBadSchedules(t *testing.T) {
	s := NewScheduler(zap.NewNop(), 0)
	noop := jobFunc(func(context.Context) error { return nil })

	assert.Error(t, s.Add("bad", "every minute", noop))

	require.NoError(t, s.Add("ok", "0 8 * * *", noop))
	assert.Error(t, s.Add("ok", "0 9 * * *", noop))
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s := NewScheduler(zap.NewNop(), 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
