package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"enip/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCycle struct {
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (c *countingCycle) Run(ctx context.Context) (*service.ExportSummary, error) {
	c.runs.Add(1)
	if c.block != nil {
		<-c.block
	}
	return &service.ExportSummary{IngestID: int64(c.runs.Load()), Exports: map[string]bool{"national": true}}, c.err
}

func TestStartWatchWorker(t *testing.T) {
	t.Run("runs immediately and on every tick", func(t *testing.T) {
		cycle := &countingCycle{}
		stop := StartWatchWorker(context.Background(), 20*time.Millisecond, cycle, Unguarded)

		require.Eventually(t, func() bool { return cycle.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
		stop()

		after := cycle.runs.Load()
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, after, cycle.runs.Load())
	})

	t.Run("keeps running after a failed cycle", func(t *testing.T) {
		cycle := &countingCycle{err: errors.New("feed unavailable")}
		stop := StartWatchWorker(context.Background(), 20*time.Millisecond, cycle, Unguarded)
		defer stop()

		require.Eventually(t, func() bool { return cycle.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("skips cycles the guard refuses", func(t *testing.T) {
		cycle := &countingCycle{}
		var attempts atomic.Int32
		refuse := func(context.Context) (func(), bool, error) {
			attempts.Add(1)
			return nil, false, nil
		}

		stop := StartWatchWorker(context.Background(), 10*time.Millisecond, cycle, refuse)
		require.Eventually(t, func() bool { return attempts.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
		stop()

		assert.Equal(t, int32(0), cycle.runs.Load())
	})

	t.Run("releases the guard after each cycle", func(t *testing.T) {
		cycle := &countingCycle{}
		var mu sync.Mutex
		held := false
		var released atomic.Int32
		guard := func(context.Context) (func(), bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if held {
				return nil, false, nil
			}
			held = true
			return func() {
				mu.Lock()
				held = false
				mu.Unlock()
				released.Add(1)
			}, true, nil
		}

		stop := StartWatchWorker(context.Background(), 10*time.Millisecond, cycle, guard)
		require.Eventually(t, func() bool { return released.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
		stop()

		assert.Equal(t, cycle.runs.Load(), released.Load())
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cycle := &countingCycle{}
		stop := StartWatchWorker(ctx, time.Hour, cycle, Unguarded)

		require.Eventually(t, func() bool { return cycle.runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
		cancel()
		stop()
	})
}
