package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRecoverer struct {
	ages []time.Duration
	n    int64
	err  error
}

func (f *fakeRecoverer) RecoverStale(_ context.Context, staleAge time.Duration) (int64, error) {
	f.ages = append(f.ages, staleAge)
	return f.n, f.err
}

func TestNewQueueRecoveryWorker_Defaults(t *testing.T) {
	w := NewQueueRecoveryWorker(&fakeRecoverer{}, 0, -time.Second)
	if w.interval != DefaultRecoveryInterval {
		t.Errorf("interval = %v, want %v", w.interval, DefaultRecoveryInterval)
	}
	if w.staleAge != DefaultStaleAge {
		t.Errorf("staleAge = %v, want %v", w.staleAge, DefaultStaleAge)
	}
}

func TestQueueRecoveryWorker_PassesStaleAge(t *testing.T) {
	rec := &fakeRecoverer{n: 2}
	w := NewQueueRecoveryWorker(rec, time.Minute, 7*time.Minute)

	w.recover(context.Background())
	rec.err = errors.New("connection refused")
	w.recover(context.Background())

	if len(rec.ages) != 2 {
		t.Fatalf("RecoverStale calls = %d, want 2", len(rec.ages))
	}
	if rec.ages[0] != 7*time.Minute {
		t.Errorf("staleAge = %v, want 7m", rec.ages[0])
	}
}

func TestQueueRecoveryWorker_StartStopsOnCancel(t *testing.T) {
	rec := &fakeRecoverer{}
	w := NewQueueRecoveryWorker(rec, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
