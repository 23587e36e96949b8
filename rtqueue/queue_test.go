package rtqueue

import (
	"context"
	"testing"
	"time"
)

type doubler struct{}

func (doubler) Process(ctx context.Context, cursor int, in int) (int, error) {
	return in * 2, nil
}

func TestSubmitPop(t *testing.T) {
	q := New[int, int](doubler{})
	q.Submit(0, 21)
	var val int
	var err error
	var ok bool
	for i := 0; i < 100; i++ {
		val, err, ok = q.Pop(0)
		if ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !ok {
		t.Fatal("result never appeared")
	}
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if val != 42 {
		t.Fatalf("val = %d, want 42", val)
	}
}

func TestPopMissingNotOK(t *testing.T) {
	q := New[int, int](doubler{})
	_, _, ok := q.Pop(99)
	if ok {
		t.Fatal("expected ok=false for never-submitted cursor")
	}
}

type blocker struct {
	release chan struct{}
}

func (b blocker) Process(ctx context.Context, cursor int, in int) (int, error) {
	select {
	case <-b.release:
		return in, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestResetCancelsAndBlocks(t *testing.T) {
	b := blocker{release: make(chan struct{})}
	q := New[int, int](b)
	q.Submit(0, 1)
	q.Reset(true)

	_, _, ok := q.Pop(0)
	if ok {
		t.Fatal("expected no result after reset")
	}
}

func TestResetIsReusable(t *testing.T) {
	q := New[int, int](doubler{})
	q.Reset(true)
	q.Submit(1, 5)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if val, err, ok := q.Pop(1); ok {
			if err != nil || val != 10 {
				t.Fatalf("val=%d err=%v, want 10,nil", val, err)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("result never appeared after reuse")
}
