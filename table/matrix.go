package table

import (
	"fmt"
	"strconv"
)

// Transpose turns column headers into a label column and rows into
// columns named "Value 1".."Value N". When the table has a row-label
// column whose values are distinct and non-empty, they name the new
// columns instead.
func (t *Table) Transpose() (*Table, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	n := t.RowCount()
	names := transposedNames(t.label, n)

	labelName := "Column"
	if t.label != nil && t.label.Name != "" {
		labelName = t.label.Name
	}
	label := NewColumn(labelName)
	for _, c := range t.columns {
		label.Append(Text(c.Name))
	}

	out := New(t.Name)
	out.label = label
	for i := 0; i < n; i++ {
		col, err := out.AddColumn(names[i])
		if err != nil {
			return nil, err
		}
		for _, c := range t.columns {
			col.Append(c.Value(i))
		}
	}
	return out, nil
}

func transposedNames(label *Column, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "Value " + strconv.Itoa(i+1)
	}
	if label == nil {
		return names
	}
	seen := make(map[string]bool, n)
	fromLabel := make([]string, n)
	for i := 0; i < n; i++ {
		s := label.Value(i).String()
		if s == "" || seen[s] {
			return names
		}
		seen[s] = true
		fromLabel[i] = s
	}
	return fromLabel
}

// numericColumns returns the Number columns in order.
func (t *Table) numericColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.typ == TypeNumber {
			out = append(out, c)
		}
	}
	return out
}

// MatrixMultiply treats the Number columns of each side as a dense matrix
// and returns t × other. Null cells count as zero. The result keeps t's
// row labels and takes its column names from other's Number columns.
func (t *Table) MatrixMultiply(other *Table) (*Table, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := other.Validate(); err != nil {
		return nil, err
	}
	left := t.numericColumns()
	right := other.numericColumns()
	if len(left) != other.RowCount() {
		return nil, fmt.Errorf("left has %d numeric columns, right has %d rows: %w", len(left), other.RowCount(), ErrDimensionMismatch)
	}

	out := New(t.Name)
	if t.label != nil {
		out.label = t.label.clone()
	}
	rows := t.RowCount()
	for _, rc := range right {
		col, err := out.AddColumn(rc.Name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			var acc float64
			for k, lc := range left {
				acc += numOrZero(lc.Value(i)) * numOrZero(rc.Value(k))
			}
			col.Append(Number(acc))
		}
	}
	return out, nil
}

func numOrZero(v Value) float64 {
	if v.Kind == KindNumber {
		return v.Num
	}
	return 0
}
