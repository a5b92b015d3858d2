package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestScheduler(t *testing.T) *Service {
	t.Helper()
	svc := NewService(nil, arbor.NewLogger()).(*Service)
	t.Cleanup(func() { svc.Stop() })
	return svc
}

func TestRegisterJobValidatesSchedule(t *testing.T) {
	svc := newTestScheduler(t)

	assert.Error(t, svc.RegisterJob("bad", "not a cron expr", "", func() error { return nil }))
	assert.NoError(t, svc.RegisterJob("good", "0 18 * * 1-5", "", func() error { return nil }))
}

func TestRegisterJobRejectsDuplicate(t *testing.T) {
	svc := newTestScheduler(t)

	require.NoError(t, svc.RegisterJob("daily_update", "0 18 * * *", "", func() error { return nil }))
	assert.Error(t, svc.RegisterJob("daily_update", "0 19 * * *", "", func() error { return nil }))
}

func TestTriggerJobRunsHandler(t *testing.T) {
	svc := newTestScheduler(t)

	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, svc.RegisterJob("daily_update", "0 18 * * *", "", func() error {
		calls.Add(1)
		close(done)
		return nil
	}))

	require.NoError(t, svc.TriggerJob("daily_update"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job handler was not invoked")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestTriggerUnknownJob(t *testing.T) {
	svc := newTestScheduler(t)
	assert.Error(t, svc.TriggerJob("nope"))
}

func TestJobStatusesRecordLastError(t *testing.T) {
	svc := newTestScheduler(t)

	done := make(chan struct{})
	require.NoError(t, svc.RegisterJob("similarity", "0 19 * * *", "", func() error {
		defer close(done)
		return errors.New("universe empty")
	}))
	require.NoError(t, svc.TriggerJob("similarity"))
	<-done

	// Status update happens right after the handler returns
	require.Eventually(t, func() bool {
		statuses := svc.JobStatuses()
		return len(statuses) == 1 && statuses[0].LastError == "universe empty"
	}, 2*time.Second, 10*time.Millisecond)

	statuses := svc.JobStatuses()
	assert.Equal(t, "similarity", statuses[0].Name)
	assert.NotNil(t, statuses[0].LastRun)
	assert.False(t, statuses[0].IsRunning)
}

func TestStartStop(t *testing.T) {
	svc := newTestScheduler(t)

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start())

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
}

func TestIsRunningConcurrentWithStartStop(t *testing.T) {
	svc := newTestScheduler(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					svc.IsRunning()
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, svc.Start())
		require.NoError(t, svc.Stop())
	}
	close(done)
	wg.Wait()

	assert.False(t, svc.IsRunning())
}

func TestJobsDoNotOverlap(t *testing.T) {
	svc := newTestScheduler(t)

	var concurrent atomic.Int32
	var peak atomic.Int32
	job := func() error {
		n := concurrent.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(20 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	}

	require.NoError(t, svc.RegisterJob("a", "0 18 * * *", "", job))
	require.NoError(t, svc.RegisterJob("b", "0 19 * * *", "", job))

	require.NoError(t, svc.TriggerJob("a"))
	require.NoError(t, svc.TriggerJob("b"))

	require.Eventually(t, func() bool {
		for _, status := range svc.JobStatuses() {
			if status.LastRun == nil || status.IsRunning {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), peak.Load())
}
