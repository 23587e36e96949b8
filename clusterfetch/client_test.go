package clusterfetch

import (
	"testing"

	"github.com/tempolake/tempolake/fetch"
)

func TestRequireWarmedUpFailsBeforeReset(t *testing.T) {
	c := New()
	if err := c.requireWarmedUp(); err == nil {
		t.Fatal("expected error before Reset")
	}
}

func TestDataShortErrorMessage(t *testing.T) {
	err := &DataShortError{Key: "k", Start: 0, End: 8, Got: 4, Want: 8}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestWrapperBatchFetchEmptyArgs(t *testing.T) {
	w := &Wrapper[float64]{}
	out, err := w.BatchFetch(nil)
	if err != nil || out != nil {
		t.Fatalf("got out=%v err=%v, want nil,nil", out, err)
	}
}

func TestWrapperBatchFetchMismatchedDatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched date_idx")
		}
	}()
	w := &Wrapper[float64]{KeyFor: func(int64, int64) string { return "k" }}
	w.BatchFetch([]fetch.Args{
		{DateIdx: 0},
		{DateIdx: 1},
	})
}

func TestWrapperBatchFetchMismatchedChannelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched channel_index")
		}
	}()
	a, b := int64(0), int64(1)
	w := &Wrapper[float64]{KeyFor: func(int64, int64) string { return "k" }}
	w.BatchFetch([]fetch.Args{
		{DateIdx: 0, ChannelIndex: &a},
		{DateIdx: 0, ChannelIndex: &b},
	})
}

func TestSameChannel(t *testing.T) {
	a, b := int64(1), int64(1)
	if !sameChannel(&a, &b) {
		t.Fatal("expected equal channel pointers with equal values to match")
	}
	if sameChannel(nil, &b) {
		t.Fatal("expected nil vs non-nil to mismatch")
	}
	if !sameChannel(nil, nil) {
		t.Fatal("expected nil vs nil to match")
	}
}

func TestReadCachePutGetInvalidate(t *testing.T) {
	c := NewReadCache(4)
	c.Put("k1", []byte("hello"))
	v, ok := c.Get("k1")
	if !ok || string(v) != "hello" {
		t.Fatalf("Get = %q,%v, want hello,true", v, ok)
	}
	c.Invalidate("k1")
	if _, ok := c.Get("k1"); ok {
		t.Fatal("expected miss after invalidate")
	}
}
