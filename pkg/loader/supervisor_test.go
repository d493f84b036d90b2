package loader

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_RetryBound(t *testing.T) {
	a := &recordingAttempter{outcomes: []Outcome{
		Failure(KindLoadError, "attempt 1"),
		Failure(KindTimeout, "attempt 2"),
		Failure(KindLoadError, "attempt 3"),
		Failure(KindTimeout, "attempt 4"),
	}}
	delay := 25 * time.Millisecond
	s := NewSupervisor(a, delay)

	err := s.Load(context.Background(), LoadRequest{URL: testURL, Timeout: time.Second, MaxRetries: 3})
	require.Error(t, err)
	require.True(t, IsKind(err, KindRetryExhausted))
	require.Equal(t, 4, a.count())

	var lf *LoadFailure
	require.True(t, errors.As(err, &lf))
	require.Equal(t, "attempt 4", lf.Reason)
	require.Equal(t, KindTimeout, lf.Last)
	require.Equal(t, 4, lf.Attempts)
	require.Contains(t, err.Error(), "after 4 attempts")

	for i := 1; i < len(a.starts); i++ {
		require.GreaterOrEqual(t, a.starts[i].Sub(a.starts[i-1]), delay, "gap before attempt %d", i+1)
	}
}

func TestSupervisor_SucceedsAfterFailure(t *testing.T) {
	a := &recordingAttempter{outcomes: []Outcome{
		Failure(KindLoadError, "flaky network"),
		Success(),
	}}
	s := NewSupervisor(a, time.Millisecond)

	require.NoError(t, s.Load(context.Background(), LoadRequest{URL: testURL, Timeout: time.Second, MaxRetries: 2}))
	require.Equal(t, 2, a.count())
}

func TestSupervisor_NoRetriesWhenBudgetIsZero(t *testing.T) {
	a := &recordingAttempter{outcomes: []Outcome{Failure(KindTimeout, "timeout loading: x")}}
	s := NewSupervisor(a, time.Millisecond)

	err := s.Load(context.Background(), LoadRequest{URL: testURL, Timeout: time.Second})
	require.True(t, IsKind(err, KindRetryExhausted))
	require.Equal(t, 1, a.count())
}

func TestSupervisor_NonRetryableKindsStopImmediately(t *testing.T) {
	for _, kind := range []Kind{KindIntegrity, KindCanceled} {
		t.Run(string(kind), func(t *testing.T) {
			a := &recordingAttempter{outcomes: []Outcome{Failure(kind, "nope")}}
			s := NewSupervisor(a, time.Millisecond)

			err := s.Load(context.Background(), LoadRequest{URL: testURL, Timeout: time.Second, MaxRetries: 5})
			require.True(t, IsKind(err, kind))
			require.Equal(t, 1, a.count())
		})
	}
}

func TestSupervisor_CancelDuringDelay(t *testing.T) {
	a := &recordingAttempter{outcomes: []Outcome{Failure(KindLoadError, "down")}}
	s := NewSupervisor(a, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := s.Load(ctx, LoadRequest{URL: testURL, Timeout: time.Second, MaxRetries: 3})
	require.True(t, IsKind(err, KindCanceled))
	require.Equal(t, 1, a.count())
}

func TestSupervisor_RejectsInvalidRequests(t *testing.T) {
	s := NewSupervisor(&recordingAttempter{outcomes: []Outcome{Success()}}, 0)

	require.Error(t, s.Load(context.Background(), LoadRequest{URL: testURL}))
	require.Error(t, s.Load(context.Background(), LoadRequest{URL: testURL, Timeout: time.Second, MaxRetries: -1}))

	var nilSup *Supervisor
	require.Error(t, nilSup.Load(context.Background(), LoadRequest{URL: testURL, Timeout: time.Second}))
}

func TestSupervisor_WithInjectorTimeouts(t *testing.T) {
	f := &countingFetcher{block: make(chan struct{})}
	pg := newTestPage(t, f)
	s := NewSupervisor(NewInjector(pg.Document()), 5*time.Millisecond)

	err := s.Load(context.Background(), LoadRequest{URL: testURL, Timeout: 20 * time.Millisecond, MaxRetries: 2})
	require.True(t, IsKind(err, KindRetryExhausted))
	require.Contains(t, err.Error(), "timeout loading: "+testURL)
	require.EqualValues(t, 3, f.calls.Load())
	require.Empty(t, pg.Document().Scripts())
}
