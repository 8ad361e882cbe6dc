package table

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE: Ordered, independently typed columns
// ============================================================================
// Column lengths are free to diverge while a table is being built row by
// row or column by column. Anything that reads rows checks that every
// column has the same length first.
// ============================================================================

// Table is a mutable columnar table with an optional row-label column.
type Table struct {
	Name    string
	columns []*Column
	label   *Column
}

// New returns an empty table.
func New(name string) *Table {
	return &Table{Name: name}
}

// FromRows builds a table from column names and rows of raw text,
// inferring each cell.
func FromRows(name string, headers []string, rows [][]string) (*Table, error) {
	t := New(name)
	for _, h := range headers {
		if _, err := t.AddColumn(h); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				t.columns[i].AppendRaw(row[i])
			} else {
				t.columns[i].Append(Null())
			}
		}
	}
	return t, nil
}

// AddColumn appends an empty column.
func (t *Table) AddColumn(name string) (*Column, error) {
	if t.ColumnIndex(name) >= 0 {
		return nil, fmt.Errorf("column %q: %w", name, ErrDuplicateName)
	}
	c := NewColumn(name)
	t.columns = append(t.columns, c)
	return c, nil
}

// AppendValue appends a typed cell to the column at index.
func (t *Table) AppendValue(index int, v Value) error {
	if index < 0 || index >= len(t.columns) {
		return fmt.Errorf("column index %d: %w", index, ErrNotFound)
	}
	t.columns[index].Append(v)
	return nil
}

// AppendRaw infers the type of text and appends it to the column at index.
func (t *Table) AppendRaw(index int, text string) error {
	return t.AppendValue(index, InferScalar(text))
}

// AppendRow appends one cell per column, in column order.
func (t *Table) AppendRow(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns: %w", len(values), len(t.columns), ErrDimensionMismatch)
	}
	for i, v := range values {
		t.columns[i].Append(v)
	}
	return nil
}

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) NumColumns() int { return len(t.columns) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the first column named name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the first column named name.
func (t *Table) Column(name string) (*Column, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("column %q: %w", name, ErrNotFound)
	}
	return t.columns[i], nil
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) (*Column, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("column index %d: %w", i, ErrNotFound)
	}
	return t.columns[i], nil
}

// Rename changes a column name. Renames may collide with other columns;
// Row disambiguates collisions when rows are synthesized.
func (t *Table) Rename(old, name string) error {
	c, err := t.Column(old)
	if err != nil {
		return err
	}
	c.Name = name
	return nil
}

// Label returns the row-label column, if any.
func (t *Table) Label() *Column { return t.label }

// SetLabel installs c as the row-label column. Pass nil to remove it.
func (t *Table) SetLabel(c *Column) { t.label = c }

// RowCount is the length of the first column.
func (t *Table) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// Validate checks that every column, the label column included, has the
// same length.
func (t *Table) Validate() error {
	n := t.RowCount()
	for _, c := range t.columns {
		if c.Len() != n {
			return fmt.Errorf("column %q has %d rows, expected %d: %w", c.Name, c.Len(), n, ErrDimensionMismatch)
		}
	}
	if t.label != nil && t.label.Len() != n {
		return fmt.Errorf("label column %q has %d rows, expected %d: %w", t.label.Name, t.label.Len(), n, ErrDimensionMismatch)
	}
	return nil
}

// RowKeys returns the keys Row uses, in order: label column first, then
// columns, made unique by UniqueNames.
func (t *Table) RowKeys() []string {
	names := make([]string, 0, len(t.columns)+1)
	if t.label != nil {
		names = append(names, t.label.Name)
	}
	return UniqueNames(append(names, t.ColumnNames()...))
}

// UniqueNames suffixes repeated names Name2, Name3, ... skipping any
// suffixed form that is already one of the names.
func UniqueNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		seen[n]++
		key := n
		if seen[n] > 1 {
			for k := seen[n]; ; k++ {
				if cand := n + strconv.Itoa(k); !taken[cand] {
					key, seen[n] = cand, k
					break
				}
			}
			taken[key] = true
		}
		out[i] = key
	}
	return out
}

// Row synthesizes a snapshot of row i keyed by RowKeys.
func (t *Table) Row(i int) (map[string]Value, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if i < 0 || i >= t.RowCount() {
		return nil, fmt.Errorf("row %d: %w", i, ErrNotFound)
	}
	keys := t.RowKeys()
	row := make(map[string]Value, len(keys))
	k := 0
	if t.label != nil {
		row[keys[0]] = t.label.Value(i)
		k = 1
	}
	for _, c := range t.columns {
		row[keys[k]] = c.Value(i)
		k++
	}
	return row, nil
}

// Rows returns every row as positional cells, label column first.
func (t *Table) Rows() ([][]Value, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	n := t.RowCount()
	out := make([][]Value, n)
	for i := 0; i < n; i++ {
		row := make([]Value, 0, len(t.columns)+1)
		if t.label != nil {
			row = append(row, t.label.Value(i))
		}
		for _, c := range t.columns {
			row = append(row, c.Value(i))
		}
		out[i] = row
	}
	return out, nil
}

// Select returns a new table holding copies of the named columns.
func (t *Table) Select(names ...string) (*Table, error) {
	out := New(t.Name)
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if out.ColumnIndex(name) >= 0 {
			return nil, fmt.Errorf("column %q: %w", name, ErrDuplicateName)
		}
		out.columns = append(out.columns, c.clone())
	}
	if t.label != nil {
		out.label = t.label.clone()
	}
	return out, nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := New(t.Name)
	for _, c := range t.columns {
		out.columns = append(out.columns, c.clone())
	}
	if t.label != nil {
		out.label = t.label.clone()
	}
	return out
}
