package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJob(t *testing.T) {
	s := New(time.UTC)
	var runs atomic.Int32
	_, err := s.Add("count", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_FailingAndPanickingJobs(t *testing.T) {
	s := New(time.UTC)
	var failed, panicked atomic.Bool
	_, err := s.Add("fail", "@every 1s", func(context.Context) error {
		failed.Store(true)
		return errors.New("boom")
	})
	require.NoError(t, err)
	_, err = s.Add("panic", "@every 1s", func(context.Context) error {
		panicked.Store(true)
		panic("boom")
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return failed.Load() && panicked.Load() }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopCancelsContext(t *testing.T) {
	s := New(time.UTC)
	started := make(chan struct{})
	var once sync.Once
	var sawCancel atomic.Bool
	_, err := s.Add("wait", "@every 1s", func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}
	s.Stop()
	assert.True(t, sawCancel.Load())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(time.UTC)
	_, err := s.Add("bad", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)
}
