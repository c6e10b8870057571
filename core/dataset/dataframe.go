// Package dataset provides the tabular data container the stepwise
// controller trains on: ordered, named feature columns, an optional target
// and a reserved constant column that models use for their intercept.
package dataset

import (
	"sort"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ConstantColumn is the reserved identifier of the intercept column. It is
// never a feature column: models report it in their p-values when they fit an
// intercept, and it can never be dropped.
const ConstantColumn = "__constant__"

// Dataframe holds feature columns in insertion order plus an optional
// target. Column data is stored column-major so dropping a column is O(1)
// per column.
//
// A Dataframe is not safe for concurrent mutation.
type Dataframe struct {
	names   []string
	columns map[string][]float64
	y       []float64
	rows    int
	deleted bool
}

// New builds a Dataframe from a feature matrix and an optional target.
// names must match the columns of X; X may be nil when y is given and the
// Dataframe has no features.
func New(names []string, X mat.Matrix, y mat.Vector) (*Dataframe, error) {
	var cols [][]float64
	if X != nil {
		r, c := X.Dims()
		if c != len(names) {
			return nil, errors.NewDimensionError("dataset.New", len(names), c, 1)
		}
		cols = make([][]float64, c)
		for j := 0; j < c; j++ {
			col := make([]float64, r)
			for i := 0; i < r; i++ {
				col[i] = X.At(i, j)
			}
			cols[j] = col
		}
	} else if len(names) > 0 {
		return nil, errors.NewValueError("dataset.New", "feature names given without a feature matrix")
	}

	var target []float64
	if y != nil {
		target = make([]float64, y.Len())
		for i := range target {
			target[i] = y.AtVec(i)
		}
	}
	return FromColumns(names, cols, target)
}

// FromColumns builds a Dataframe from column slices. The slices are copied.
// y may be nil for prediction data.
func FromColumns(names []string, cols [][]float64, y []float64) (*Dataframe, error) {
	if len(names) != len(cols) {
		return nil, errors.NewDimensionError("dataset.FromColumns", len(names), len(cols), 1)
	}

	rows := -1
	if y != nil {
		rows = len(y)
	}
	df := &Dataframe{
		names:   make([]string, 0, len(names)),
		columns: make(map[string][]float64, len(names)),
	}
	for j, name := range names {
		if err := validateName(name); err != nil {
			return nil, err
		}
		if _, dup := df.columns[name]; dup {
			return nil, errors.NewValidationError("column", "duplicate column name", name)
		}
		if rows == -1 {
			rows = len(cols[j])
		}
		if len(cols[j]) != rows {
			return nil, errors.NewDimensionError("dataset.FromColumns", rows, len(cols[j]), 0)
		}
		df.names = append(df.names, name)
		df.columns[name] = append([]float64(nil), cols[j]...)
	}
	if rows == -1 {
		rows = 0
	}
	df.rows = rows
	if y != nil {
		df.y = make([]float64, len(y))
		copy(df.y, y)
	}
	return df, nil
}

func validateName(name string) error {
	if name == "" {
		return errors.NewValidationError("column", "column name must not be empty", name)
	}
	if name == ConstantColumn {
		return errors.NewValidationError("column", "column name is reserved for the intercept", name)
	}
	return nil
}

// Rows returns the number of records.
func (df *Dataframe) Rows() int {
	return df.rows
}

// XColumnSize returns the number of feature columns.
func (df *Dataframe) XColumnSize() int {
	return len(df.names)
}

// XColumns returns the feature column names in order.
func (df *Dataframe) XColumns() []string {
	return append([]string(nil), df.names...)
}

// HasColumn reports whether name is a feature column.
func (df *Dataframe) HasColumn(name string) bool {
	_, ok := df.columns[name]
	return ok
}

// Column returns a copy of one feature column.
func (df *Dataframe) Column(name string) ([]float64, bool) {
	col, ok := df.columns[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), col...), true
}

// HasY reports whether the Dataframe carries a target.
func (df *Dataframe) HasY() bool {
	return df.y != nil
}

// Y returns the target as a vector, or nil if there is none or no rows.
func (df *Dataframe) Y() *mat.VecDense {
	if df.y == nil || df.rows == 0 {
		return nil
	}
	return mat.NewVecDense(df.rows, append([]float64(nil), df.y...))
}

// X returns the feature matrix in column order. It returns nil when the
// Dataframe has no rows or no feature columns.
func (df *Dataframe) X() *mat.Dense {
	X, _ := df.Select(df.names)
	return X
}

// Select returns the rows × len(names) matrix of the named columns in the
// given order. It is how a trained model extracts exactly the features it was
// fitted on. A nil matrix is returned for zero names or zero rows.
func (df *Dataframe) Select(names []string) (*mat.Dense, error) {
	if df.deleted {
		return nil, errors.Wrap(errors.ErrDeleted, "dataset.Select")
	}
	for _, name := range names {
		if _, ok := df.columns[name]; !ok {
			return nil, errors.NewValueError("dataset.Select", "missing column "+name)
		}
	}
	if len(names) == 0 || df.rows == 0 {
		return nil, nil
	}
	X := mat.NewDense(df.rows, len(names), nil)
	for j, name := range names {
		X.SetCol(j, df.columns[name])
	}
	return X, nil
}

// Copy returns a deep copy. The copy owns its data and can be mutated and
// deleted independently.
func (df *Dataframe) Copy() *Dataframe {
	c := &Dataframe{
		names:   append([]string(nil), df.names...),
		columns: make(map[string][]float64, len(df.columns)),
		rows:    df.rows,
		deleted: df.deleted,
	}
	for name, col := range df.columns {
		c.columns[name] = append([]float64(nil), col...)
	}
	if df.y != nil {
		c.y = make([]float64, len(df.y))
		copy(c.y, df.y)
	}
	return c
}

// DropXColumns removes the given feature columns in place and returns how
// many were removed. Unknown names and ConstantColumn are ignored.
func (df *Dataframe) DropXColumns(names map[string]struct{}) int {
	if len(names) == 0 {
		return 0
	}
	kept := df.names[:0]
	dropped := 0
	for _, name := range df.names {
		if _, drop := names[name]; drop && name != ConstantColumn {
			delete(df.columns, name)
			dropped++
			continue
		}
		kept = append(kept, name)
	}
	df.names = kept
	return dropped
}

// DropColumns is DropXColumns for a list of names.
func (df *Dataframe) DropColumns(names ...string) int {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return df.DropXColumns(set)
}

// Delete releases the backing data. It is safe to call more than once; a
// deleted Dataframe reports zero columns and rows.
func (df *Dataframe) Delete() {
	df.names = nil
	df.columns = map[string][]float64{}
	df.y = nil
	df.rows = 0
	df.deleted = true
}

// IsDeleted reports whether Delete has been called.
func (df *Dataframe) IsDeleted() bool {
	return df.deleted
}

// Order returns names sorted by their position in the Dataframe. Names that
// are not feature columns go last in lexical order.
func (df *Dataframe) Order(names []string) []string {
	pos := make(map[string]int, len(df.names))
	for i, name := range df.names {
		pos[name] = i
	}
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(a, b int) bool {
		pa, oka := pos[out[a]]
		pb, okb := pos[out[b]]
		switch {
		case oka && okb:
			return pa < pb
		case oka != okb:
			return oka
		default:
			return out[a] < out[b]
		}
	})
	return out
}
