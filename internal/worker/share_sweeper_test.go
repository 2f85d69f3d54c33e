package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeShareStore struct {
	calls []int64
	n     int64
	err   error
}

func (f *fakeShareStore) DeleteExpired(_ context.Context, now int64) (int64, error) {
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func TestSweepPassesCurrentTime(t *testing.T) {
	store := &fakeShareStore{n: 3}
	s := NewShareSweeper(store, time.Minute, nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.calls) != 1 || store.calls[0] != 1700000000 {
		t.Errorf("calls = %v, want one call at 1700000000", store.calls)
	}
}

func TestSweepPropagatesError(t *testing.T) {
	store := &fakeShareStore{err: errors.New("db down")}
	s := NewShareSweeper(store, time.Minute, nil)
	if err := s.Sweep(context.Background()); err == nil {
		t.Fatal("want error from failing store")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeShareStore{}
	s := NewShareSweeper(store, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	if len(store.calls) == 0 {
		t.Error("sweeper never swept")
	}
}
