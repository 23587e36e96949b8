package frame

import "testing"

func TestNewShapeMismatch(t *testing.T) {
	_, err := New[float64]([]int64{1, 2}, []string{"a"}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestNewNonMonotoneIndex(t *testing.T) {
	_, err := New[float64]([]int64{2, 1}, []string{"a"}, []float64{1, 2})
	if err == nil {
		t.Fatal("expected non-monotone index error")
	}
}

func TestNewAndColumnNames(t *testing.T) {
	f, err := New[float64]([]int64{1, 2}, []string{"a", "b", "c"}, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.N() != 2 || f.S() != 3 {
		t.Fatalf("N=%d S=%d, want 2,3", f.N(), f.S())
	}
	names := f.ColumnNames()
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
