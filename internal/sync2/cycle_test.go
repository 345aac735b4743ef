package sync2_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/MyJetTools/my-no-sql-core/internal/sync2"
)

func TestCycle_RunsImmediately(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cycle := sync2.NewCycle(time.Hour)

	var group errgroup.Group
	var counter int64
	cycle.Start(ctx, &group, func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&counter) == 1
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, group.Wait())
}

func TestCycle_Trigger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cycle := sync2.NewCycle(time.Hour)

	var group errgroup.Group
	var counter int64
	cycle.Start(ctx, &group, func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&counter) == 1
	}, time.Second, time.Millisecond)

	cycle.TriggerWait()
	require.Equal(t, int64(2), atomic.LoadInt64(&counter))

	cycle.Stop()
	require.NoError(t, group.Wait())
}

func TestCycle_StopEndsTheLoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cycle := sync2.NewCycle(time.Millisecond)

	var group errgroup.Group
	cycle.Start(ctx, &group, func(ctx context.Context) error {
		return nil
	})

	time.Sleep(5 * time.Millisecond)
	cycle.Stop()
	require.NoError(t, group.Wait())
}
