package table

import "testing"

func approxEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < tolerance
}

func testVETable() *Table {
	xs := []float64{1000, 3000, 6000}
	ys := []float64{20, 60, 100}
	data := [][]float64{
		{0.40, 0.50, 0.55},
		{0.45, 0.65, 0.70},
		{0.50, 0.75, 0.85},
	}
	return New(xs, ys, data)
}

func TestLookupExactGridPoints(t *testing.T) {
	tbl := testVETable()
	xs, ys := tbl.Xs(), tbl.Ys()
	for j, y := range ys {
		for i, x := range xs {
			got := tbl.Lookup(x, y)
			want := [][]float64{
				{0.40, 0.50, 0.55},
				{0.45, 0.65, 0.70},
				{0.50, 0.75, 0.85},
			}[j][i]
			if !approxEqual(got, want, 1e-9) {
				t.Errorf("Lookup(%v, %v) = %v, want %v (exact grid point)", x, y, got, want)
			}
		}
	}
}

func TestLookupMidpointInterpolates(t *testing.T) {
	tbl := testVETable()
	// Midpoint between (3000,60)=0.65 and its four neighbors should land
	// strictly between the min and max of the surrounding cell.
	got := tbl.Lookup(4500, 80)
	if got <= 0.65 || got >= 0.85 {
		t.Errorf("Lookup(4500,80) = %v, want strictly between 0.65 and 0.85", got)
	}
}

func TestLookupClampsBelowRange(t *testing.T) {
	tbl := testVETable()
	got := tbl.Lookup(0, 0)
	want := tbl.Lookup(1000, 20)
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("Lookup(0,0) = %v, want clamp to (1000,20) = %v", got, want)
	}
}

func TestLookupClampsAboveRange(t *testing.T) {
	tbl := testVETable()
	got := tbl.Lookup(10000, 200)
	want := tbl.Lookup(6000, 100)
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("Lookup(10000,200) = %v, want clamp to (6000,100) = %v", got, want)
	}
}

func TestLookupSingleRowAxis(t *testing.T) {
	tbl := New([]float64{50}, []float64{0, 10}, [][]float64{{1.0}, {2.0}})
	if got := tbl.Lookup(999, 5); !approxEqual(got, 1.5, 1e-9) {
		t.Errorf("Lookup with singleton x-axis = %v, want 1.5", got)
	}
}

func TestLookupSingleColumnAxis(t *testing.T) {
	tbl := New([]float64{0, 10}, []float64{50}, [][]float64{{1.0, 2.0}})
	if got := tbl.Lookup(5, 999); !approxEqual(got, 1.5, 1e-9) {
		t.Errorf("Lookup with singleton y-axis = %v, want 1.5", got)
	}
}

func TestLookupContinuity(t *testing.T) {
	tbl := testVETable()
	x := 3000.0
	prev := tbl.Lookup(x, 0)
	for y := 1.0; y <= 120; y++ {
		cur := tbl.Lookup(x, y)
		if !approxEqual(cur, prev, 0.05) {
			t.Errorf("Lookup discontinuity near y=%v: %v -> %v", y, prev, cur)
		}
		prev = cur
	}
}

func TestNewPanicsOnNonIncreasingAxis(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("New should panic on non-increasing xs")
		}
	}()
	New([]float64{10, 5}, []float64{0, 1}, [][]float64{{1, 2}, {3, 4}})
}

func TestTable3DExactGridPoints(t *testing.T) {
	xs := []float64{0, 10}
	ys := []float64{0, 10}
	zs := []float64{0, 10}
	data := [][][]float64{
		{{0, 1}, {2, 3}},
		{{4, 5}, {6, 7}},
	}
	t3 := New3D(xs, ys, zs, data)
	want := [2][2][2]float64{
		{{0, 1}, {2, 3}},
		{{4, 5}, {6, 7}},
	}
	for k, z := range zs {
		for j, y := range ys {
			for i, x := range xs {
				if got := t3.Lookup(x, y, z); !approxEqual(got, want[k][j][i], 1e-9) {
					t.Errorf("Lookup3D(%v,%v,%v) = %v, want %v", x, y, z, got, want[k][j][i])
				}
			}
		}
	}
}

func TestTable3DClamp(t *testing.T) {
	xs := []float64{0, 10}
	ys := []float64{0, 10}
	zs := []float64{0, 10}
	data := [][][]float64{
		{{0, 1}, {2, 3}},
		{{4, 5}, {6, 7}},
	}
	t3 := New3D(xs, ys, zs, data)
	got := t3.Lookup(-5, -5, -5)
	want := t3.Lookup(0, 0, 0)
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("Lookup3D(-5,-5,-5) = %v, want clamp to %v", got, want)
	}
}
