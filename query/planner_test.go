// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package query

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tempolake/tempolake/fetch"
)

// fixture builds the shared shape used across spec scenarios 1-3:
// 4 days, 2 ticks/day, 8 total ticks, day widths 4/5/6/7 symbols
// (symbol ids 0..N-1 per day, all starting at column 0).
func fixtureShape(columns []int64) *Shape {
	cols := make([]SymbolID, len(columns))
	for i, c := range columns {
		cols[i] = SymbolInt(c)
	}
	compactColumns := make([]SymbolID, 0, 22)
	for _, width := range []int64{4, 5, 6, 7} {
		for s := int64(0); s < width; s++ {
			compactColumns = append(compactColumns, SymbolInt(s))
		}
	}
	return &Shape{
		DatetimeStart:      1,
		DatetimeEnd:        8,
		DatetimeLen:        6,
		Columns:            cols,
		NumTicksPerDay:     2,
		FullIndex:          []int64{0, 1, 2, 3, 4, 6, 8, 10},
		TimeIdxToDateIdx:   []int64{0, 0, 1, 1, 2, 2, 3, 3},
		DateColumnsOffset:  []int64{0, 4, 9, 15, 22},
		CompactColumns:     compactColumns,
	}
}

func compactData(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) && math.IsNaN(b[i]) {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRowContiguousScenario1(t *testing.T) {
	q := fixtureShape([]int64{0, 1, 2, 3})
	f := &fetch.CompactFetcher[float64]{Values: compactData(44)}

	got, err := RowContiguous[float64](q, f)
	if err != nil {
		t.Fatalf("RowContiguous: %v", err)
	}
	want := []float64{
		4, 5, 6, 7,
		8, 9, 10, 11,
		13, 14, 15, 16,
		18, 19, 20, 21,
		24, 25, 26, 27,
		30, 31, 32, 33,
	}
	if !floatsEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRowContiguousScenario2(t *testing.T) {
	q := fixtureShape([]int64{1, 2, 3, 4})
	f := &fetch.CompactFetcher[float64]{Values: compactData(44)}

	got, err := RowContiguous[float64](q, f)
	if err != nil {
		t.Fatalf("RowContiguous: %v", err)
	}
	nan := math.NaN()
	want := []float64{
		5, 6, 7, nan,
		9, 10, 11, 12,
		14, 15, 16, 17,
		19, 20, 21, 22,
		25, 26, 27, 28,
		31, 32, 33, 34,
	}
	if !floatsEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// columnMajorFixtureDays reinterprets the same logical per-day blocks
// used by fixtureShape/compactData as column-major (S_n, T_d) slices,
// for ColumnContiguous scenarios.
func columnMajorFixtureDays() [][]float64 {
	widths := []int64{4, 5, 6, 7}
	offsets := []int64{0, 4, 9, 15, 22}
	days := make([][]float64, 4)
	for d, w := range widths {
		td := int64(2)
		base := offsets[d] * td
		buf := make([]float64, w*td)
		for i := range buf {
			buf[i] = float64(base + int64(i))
		}
		days[d] = buf
	}
	return days
}

func TestColumnContiguousScenario3(t *testing.T) {
	q := fixtureShape([]int64{2, 3, 4, 5})
	f := &fetch.SlicedFetcher[float64]{Days: columnMajorFixtureDays()}

	got, err := ColumnContiguous[float64](q, f, 0, nil)
	if err != nil {
		t.Fatalf("ColumnContiguous: %v", err)
	}
	rows := Transpose[float64](got, 4, 6)

	nan := math.NaN()
	want := []float64{
		5, 7, nan, nan,
		12, 14, 16, nan,
		13, 15, 17, nan,
		22, 24, 26, 28,
		23, 25, 27, 29,
		34, 36, 38, 40,
	}
	if !floatsEqual(rows, want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
}

func TestColumnContiguousScenario4Sliced(t *testing.T) {
	// per-day slice sizes [8,10,12,14], values 0..44, columns [0,1,2,3]
	sizes := []int{8, 10, 12, 14}
	days := make([][]float64, len(sizes))
	v := float64(0)
	for i, sz := range sizes {
		buf := make([]float64, sz)
		for j := range buf {
			buf[j] = v
			v++
		}
		days[i] = buf
	}

	q := fixtureShape([]int64{0, 1, 2, 3})
	f := &fetch.SlicedFetcher[float64]{Days: days}

	got, err := ColumnContiguous[float64](q, f, 0, nil)
	if err != nil {
		t.Fatalf("ColumnContiguous: %v", err)
	}
	rows := Transpose[float64](got, 4, 6)

	want := []float64{
		1, 3, 5, 7,
		8, 10, 12, 14,
		9, 11, 13, 15,
		18, 20, 22, 24,
		19, 21, 23, 25,
		30, 32, 34, 36,
	}
	if !floatsEqual(rows, want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
}

func TestTimeRangeDiscontinuous(t *testing.T) {
	q := fixtureShape([]int64{0})
	q.DatetimeEnd = 7 // full_index has no 7 between start/len window boundary
	f := &fetch.CompactFetcher[float64]{Values: compactData(44)}
	_, err := RowContiguous[float64](q, f)
	if !errors.Is(err, ErrIndexDiscontinuous) {
		t.Fatalf("expected ErrIndexDiscontinuous, got %v", err)
	}
}

func TestTimeRangeStartNotPresent(t *testing.T) {
	q := fixtureShape([]int64{0})
	q.DatetimeStart = 5
	f := &fetch.CompactFetcher[float64]{Values: compactData(44)}
	_, err := RowContiguous[float64](q, f)
	if !errors.Is(err, ErrIndexDiscontinuous) {
		t.Fatalf("expected ErrIndexDiscontinuous, got %v", err)
	}
}

func TestColumnIndexCacheMemoizes(t *testing.T) {
	dayCols := []SymbolID{SymbolInt(0), SymbolInt(1), SymbolInt(2)}
	requested := []SymbolID{SymbolInt(1), SymbolInt(9)}
	c := newColumnIndexCache()

	got := c.Get(0, dayCols, requested)
	if got[0] != 1 || got[1] != missingPos {
		t.Fatalf("got %v", got)
	}

	// second call with different dayColumns for the same day position
	// must still return the memoised result, proving it didn't recompute.
	got2 := c.Get(0, nil, requested)
	if got2[0] != 1 || got2[1] != missingPos {
		t.Fatalf("memoised get mismatch: %v", got2)
	}
}

func TestShardedColumnIndexCache(t *testing.T) {
	c := newShardedColumnIndexCache(4)
	dayCols := []SymbolID{SymbolInt(0), SymbolInt(1)}
	requested := []SymbolID{SymbolInt(1)}
	for i := 0; i < 16; i++ {
		got := c.Get(i, dayCols, requested)
		if got[0] != 1 {
			t.Fatalf("day %d: got %v", i, got)
		}
	}
}

type asyncSlicedFetcher struct {
	days [][]float64
}

func (f *asyncSlicedFetcher) Fetch(ctx context.Context, args fetch.Args) ([]float64, error) {
	day := f.days[args.DateIdx]
	colBase := args.DateColIdx * args.NumTicksPerDay
	start := colBase + args.TimeStartIdx
	end := colBase + args.TimeEndIdx
	return day[start:end], nil
}

func TestAsyncColumnContiguousMatchesSync(t *testing.T) {
	q := fixtureShape([]int64{2, 3, 4, 5})
	days := columnMajorFixtureDays()

	syncFetcher := &fetch.SlicedFetcher[float64]{Days: days}
	syncOut, err := ColumnContiguous[float64](q, syncFetcher, 0, nil)
	if err != nil {
		t.Fatalf("ColumnContiguous: %v", err)
	}

	asyncOut, err := AsyncColumnContiguous[float64](context.Background(), q, &asyncSlicedFetcher{days: days}, 0, nil)
	if err != nil {
		t.Fatalf("AsyncColumnContiguous: %v", err)
	}

	if !floatsEqual(syncOut, asyncOut) {
		t.Fatalf("async/sync mismatch: got %v, want %v", asyncOut, syncOut)
	}
}

func TestColumnContiguousWithOffsetsPrecondition(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for offsets without positive multiplier")
		}
	}()
	q := fixtureShape([]int64{0})
	f := &fetch.SlicedFetcher[float64]{Days: columnMajorFixtureDays()}
	ColumnContiguous[float64](q, f, 0, &fetch.Offsets{ColumnOffset: 0})
}

func TestColumnContiguousWithPadding(t *testing.T) {
	// single day, 4 symbols, 2 ticks/day, multiplier 2: day buffer holds
	// 4*2*2 = 16 widened elements; column "2" (index 2) occupies
	// day[(2*2+0)*2 : (2*2+2)*2) = day[8:12].
	day := make([]float64, 16)
	day[8], day[9], day[10], day[11] = 100, 101, 102, 103

	q := fixtureShape([]int64{2})
	q.DatetimeStart = 0
	q.DatetimeLen = 2
	q.DatetimeEnd = 1
	f := &fetch.SlicedFetcher[float64]{Days: [][]float64{day}, Multiplier: 2}

	offsets := &fetch.Offsets{ChannelPadStart: 1, ChannelPadEnd: 1}
	got, err := ColumnContiguous[float64](q, f, 2, offsets)
	if err != nil {
		t.Fatalf("ColumnContiguous: %v", err)
	}
	// total stride = 2+1+1 = 4, 2 ticks -> 8 slots; pad slots stay zero (untouched).
	want := []float64{0, 100, 101, 0, 0, 102, 103, 0}
	if !floatsEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
