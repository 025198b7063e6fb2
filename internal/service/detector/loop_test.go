package detector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/motion-stream/internal/domain/motion"
)

var errOffline = errors.New("obs is offline")

// fakeProvider fails the first connectFailures connects and serves frame afterwards.
type fakeProvider struct {
	mu              sync.Mutex
	connectFailures int
	connects        []time.Time
	captures        int
	failCapture     func(n int) bool
	frame           *motion.Frame
	closed          bool
}

func (f *fakeProvider) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connects = append(f.connects, time.Now())

	if len(f.connects) <= f.connectFailures {
		return errOffline
	}

	return nil
}

func (f *fakeProvider) CaptureFrame(context.Context, string, int, int) (*motion.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.captures++

	if f.failCapture != nil && f.failCapture(f.captures) {
		return nil, ErrCapture
	}

	return f.frame, nil
}

func (f *fakeProvider) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeProvider) snapshot() (connects []time.Time, captures int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]time.Time(nil), f.connects...), f.captures, f.closed
}

// TestConnectWithRetry_RetriesUntilSuccess checks that attempts are spaced at the retry delay.
func TestConnectWithRetry_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		provider := &fakeProvider{connectFailures: 2}
		start := time.Now()

		require.NoError(t, ConnectWithRetry(context.Background(), provider, 5*time.Second))

		connects, _, _ := provider.snapshot()
		require.Equal(t, []time.Time{
			start,
			start.Add(5 * time.Second),
			start.Add(10 * time.Second),
		}, connects)
	})
}

// TestConnectWithRetry_Cancel stops retrying once the context is cancelled.
func TestConnectWithRetry_Cancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		provider := &fakeProvider{connectFailures: 1 << 30}

		ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
		defer cancel()

		err := ConnectWithRetry(ctx, provider, 5*time.Second)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		connects, _, _ := provider.snapshot()
		require.Len(t, connects, 3)
	})
}

// TestLoop_TicksOnlyAfterConnect verifies that frames are captured only once connected.
func TestLoop_TicksOnlyAfterConnect(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := testConfig(t)
		provider := &fakeProvider{
			connectFailures: 2,
			frame:           solidFrame(t, 2, 2, 7),
		}

		pipeline := NewPipeline(ctx, new(fakeActuator), cfg)
		loop := NewLoop(provider, pipeline, cfg)

		done := make(chan error, 1)

		go func() {
			done <- loop.Run(ctx)
		}()

		time.Sleep(2 * cfg.ConnectionRetryDelay)
		synctest.Wait()

		connects, captures, _ := provider.snapshot()
		require.Len(t, connects, 3)
		require.Zero(t, captures)

		time.Sleep(3 * cfg.SampleInterval)
		synctest.Wait()

		_, captures, _ = provider.snapshot()
		require.Equal(t, 3, captures)
		require.Len(t, pipeline.Samples(), 2)

		cancel()
		require.NoError(t, <-done)

		_, _, closed := provider.snapshot()
		require.True(t, closed)
	})
}

// TestLoop_SkipsFailedCaptures leaves the previous frame in place when a capture fails.
func TestLoop_SkipsFailedCaptures(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := testConfig(t)
		provider := &fakeProvider{
			frame:       solidFrame(t, 2, 2, 7),
			failCapture: func(n int) bool { return n == 2 },
		}

		pipeline := NewPipeline(ctx, new(fakeActuator), cfg)
		loop := NewLoop(provider, pipeline, cfg)

		done := make(chan error, 1)

		go func() {
			done <- loop.Run(ctx)
		}()

		time.Sleep(4 * cfg.SampleInterval)
		synctest.Wait()

		// Baseline, failure, then two samples.
		_, captures, _ := provider.snapshot()
		require.Equal(t, 4, captures)
		require.Equal(t, []float64{0, 0}, pipeline.Samples())

		cancel()
		require.NoError(t, <-done)
	})
}

// TestLoop_CancelWhileConnecting returns cleanly when OBS never comes up.
func TestLoop_CancelWhileConnecting(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		cfg := testConfig(t)
		provider := &fakeProvider{connectFailures: 1 << 30}
		loop := NewLoop(provider, NewPipeline(ctx, new(fakeActuator), cfg), cfg)

		done := make(chan error, 1)

		go func() {
			done <- loop.Run(ctx)
		}()

		time.Sleep(cfg.ConnectionRetryDelay)
		synctest.Wait()
		cancel()

		require.NoError(t, <-done)

		connects, captures, closed := provider.snapshot()
		require.Len(t, connects, 2)
		require.Zero(t, captures)
		require.True(t, closed)
	})
}
