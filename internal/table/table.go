// Package table implements the bilinear/trilinear lookup tables used to
// encode calibration surfaces such as volumetric efficiency and spark
// advance over (rpm, MAP).
package table

// Table is an immutable 2-D function over two strictly increasing axis
// vectors, queried with clamped bilinear interpolation.
type Table struct {
	xs   []float64
	ys   []float64
	data [][]float64 // data[j][i] corresponds to (xs[i], ys[j])
}

// New builds a Table from axis vectors and a row-major (y-major) grid.
// xs and ys must be strictly increasing; data must be len(ys) rows of
// len(xs) values. New panics on malformed input — this is a load-time
// construction, not a runtime query, and a malformed tuning table is a
// configuration bug that should fail loudly before the engine ever turns.
func New(xs, ys []float64, data [][]float64) *Table {
	if len(xs) == 0 || len(ys) == 0 {
		panic("table: axes must be non-empty")
	}
	if len(data) != len(ys) {
		panic("table: data row count must match ys length")
	}
	for _, row := range data {
		if len(row) != len(xs) {
			panic("table: data column count must match xs length")
		}
	}
	requireStrictlyIncreasing(xs, "xs")
	requireStrictlyIncreasing(ys, "ys")

	return &Table{xs: xs, ys: ys, data: data}
}

func requireStrictlyIncreasing(vs []float64, name string) {
	for i := 1; i < len(vs); i++ {
		if vs[i] <= vs[i-1] {
			panic("table: " + name + " must be strictly increasing")
		}
	}
}

// lowerIndex returns i such that xs[i] <= v < xs[i+1], clamped to
// [0, len(xs)-2] when len(xs) > 1. On an exact hit at a boundary it
// prefers the lower index, per spec: deterministic tie-breaking.
func lowerIndex(xs []float64, v float64) int {
	n := len(xs)
	if n == 1 {
		return 0
	}
	if v <= xs[0] {
		return 0
	}
	if v >= xs[n-1] {
		return n - 2
	}
	// Binary search for the last index whose axis value is <= v.
	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if xs[mid] <= v {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo >= n-1 {
		lo = n - 2
	}
	return lo
}

// Lookup returns the clamped bilinear interpolation of the table at (x, y).
func (t *Table) Lookup(x, y float64) float64 {
	if len(t.xs) == 1 && len(t.ys) == 1 {
		return t.data[0][0]
	}
	x = min(max(x, t.xs[0]), t.xs[len(t.xs)-1])
	y = min(max(y, t.ys[0]), t.ys[len(t.ys)-1])
	if len(t.xs) == 1 {
		j := lowerIndex(t.ys, y)
		return lerp(y, t.ys[j], t.ys[j+1], t.data[j][0], t.data[j+1][0])
	}
	if len(t.ys) == 1 {
		i := lowerIndex(t.xs, x)
		return lerp(x, t.xs[i], t.xs[i+1], t.data[0][i], t.data[0][i+1])
	}

	i := lowerIndex(t.xs, x)
	j := lowerIndex(t.ys, y)

	x0, x1 := t.xs[i], t.xs[i+1]
	y0, y1 := t.ys[j], t.ys[j+1]

	q00 := t.data[j][i]
	q10 := t.data[j][i+1]
	q01 := t.data[j+1][i]
	q11 := t.data[j+1][i+1]

	denom := (x1 - x0) * (y1 - y0)
	return (q00*(x1-x)*(y1-y) + q10*(x-x0)*(y1-y) + q01*(x1-x)*(y-y0) + q11*(x-x0)*(y-y0)) / denom
}

func lerp(v, v0, v1, q0, q1 float64) float64 {
	if v1 == v0 {
		return q0
	}
	return q0 + (q1-q0)*(v-v0)/(v1-v0)
}

// Xs returns a copy of the x-axis vector (for diagnostic dumps).
func (t *Table) Xs() []float64 { return append([]float64(nil), t.xs...) }

// Ys returns a copy of the y-axis vector (for diagnostic dumps).
func (t *Table) Ys() []float64 { return append([]float64(nil), t.ys...) }

// Table3D generalizes Table to three axes with trilinear interpolation.
type Table3D struct {
	xs, ys, zs []float64
	data       [][][]float64 // data[k][j][i] <-> (xs[i], ys[j], zs[k])
}

// New3D builds a Table3D from three strictly increasing axis vectors and a
// z-major, y-major, x-minor grid.
func New3D(xs, ys, zs []float64, data [][][]float64) *Table3D {
	if len(xs) == 0 || len(ys) == 0 || len(zs) == 0 {
		panic("table: axes must be non-empty")
	}
	if len(data) != len(zs) {
		panic("table: data depth must match zs length")
	}
	for _, plane := range data {
		if len(plane) != len(ys) {
			panic("table: data row count must match ys length")
		}
		for _, row := range plane {
			if len(row) != len(xs) {
				panic("table: data column count must match xs length")
			}
		}
	}
	requireStrictlyIncreasing(xs, "xs")
	requireStrictlyIncreasing(ys, "ys")
	requireStrictlyIncreasing(zs, "zs")

	return &Table3D{xs: xs, ys: ys, zs: zs, data: data}
}

// Lookup returns the clamped trilinear interpolation of the table at (x, y, z).
func (t *Table3D) Lookup(x, y, z float64) float64 {
	z = min(max(z, t.zs[0]), t.zs[len(t.zs)-1])
	if len(t.zs) == 1 {
		return (&Table{xs: t.xs, ys: t.ys, data: t.data[0]}).Lookup(x, y)
	}

	k := lowerIndex(t.zs, z)
	z0, z1 := t.zs[k], t.zs[k+1]

	lower := (&Table{xs: t.xs, ys: t.ys, data: t.data[k]}).Lookup(x, y)
	upper := (&Table{xs: t.xs, ys: t.ys, data: t.data[k+1]}).Lookup(x, y)

	return lerp(z, z0, z1, lower, upper)
}
