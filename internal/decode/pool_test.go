package decode

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrentRuns(t *testing.T) {
	pool := NewPool(2)

	var current, max int32
	bump := func() {
		n := atomic.AddInt32(&current, 1)
		for {
			prev := atomic.LoadInt32(&max)
			if n <= prev || atomic.CompareAndSwapInt32(&max, prev, n) {
				break
			}
		}
	}

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			_, _ = pool.Run(context.Background(), func() (Result, error) {
				bump()
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return Completed, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	assert.LessOrEqual(t, int(atomic.LoadInt32(&max)), 2)
}

func TestPoolRunCancelledBeforeSlotFree(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, err := pool.Run(ctx, func() (Result, error) {
		ran = true
		return Completed, nil
	})

	require.Error(t, err)
	assert.False(t, ran)
}
