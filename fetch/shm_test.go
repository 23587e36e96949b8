package fetch

import "testing"

func TestCompactFetcher(t *testing.T) {
	f := &CompactFetcher[float64]{Values: []float64{0, 1, 2, 3, 4, 5}}
	got, err := f.Fetch(Args{StartIdx: 2, EndIdx: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCompactFetcherOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range fetch")
		}
	}()
	f := &CompactFetcher[float64]{Values: []float64{0, 1, 2}}
	f.Fetch(Args{StartIdx: 1, EndIdx: 10})
}

func TestSlicedFetcherMultiplier(t *testing.T) {
	f := &SlicedFetcher[float64]{
		Days:       [][]float64{{0, 1, 2, 3, 4, 5}},
		Multiplier: 2,
	}
	got, err := f.Fetch(Args{DateIdx: 0, TimeStartIdx: 1, TimeEndIdx: 3})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []float64{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSlicedFetcherDateColIdx(t *testing.T) {
	// day buffer laid out column-major: 4 columns x 2 ticks.
	f := &SlicedFetcher[float64]{
		Days: [][]float64{{0, 1, 2, 3, 4, 5, 6, 7}},
	}
	got, err := f.Fetch(Args{DateIdx: 0, DateColIdx: 2, NumTicksPerDay: 2, TimeStartIdx: 0, TimeEndIdx: 2})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []float64{4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
