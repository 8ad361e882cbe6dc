package connector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spektr-org/tabula/table"
)

// Cellset is a two-axis query result as returned by a multidimensional
// server. Each position on an axis is a tuple of member captions.
type Cellset struct {
	RowLevels []string   // names of the row-axis hierarchies, optional
	Rows      [][]string // row-axis tuples
	Columns   [][]string // column-axis tuples
	Cells     [][]string // formatted cell values, Cells[row][column]
}

// CellsetClient executes an MDX statement against a cube server.
type CellsetClient interface {
	Execute(ctx context.Context, mdx string) (*Cellset, error)
}

// OLAP fetches cellsets and flattens them.
type OLAP struct {
	Client CellsetClient
}

func (o OLAP) Fetch(ctx context.Context, query string) (*table.Table, error) {
	if o.Client == nil {
		return nil, errors.New("olap source: no client configured")
	}
	cs, err := o.Client.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("olap source: %w", err)
	}
	return Flatten(cs)
}

// Flatten turns a cellset into a table. Row-axis captions become leading
// text columns; every column tuple becomes one column named by its
// captions joined with " / ". Repeated names are made unique; empty
// cells are null.
func Flatten(cs *Cellset) (*table.Table, error) {
	t := table.New("")
	if cs == nil {
		return t, nil
	}

	depth := 0
	for _, tuple := range cs.Rows {
		if len(tuple) > depth {
			depth = len(tuple)
		}
	}
	names := make([]string, 0, depth+len(cs.Columns))
	for i := 0; i < depth; i++ {
		name := "Row" + strconv.Itoa(i+1)
		if i < len(cs.RowLevels) && cs.RowLevels[i] != "" {
			name = cs.RowLevels[i]
		}
		names = append(names, name)
	}
	for _, tuple := range cs.Columns {
		names = append(names, strings.Join(tuple, " / "))
	}
	cols := make([]*table.Column, len(names))
	for i, name := range table.UniqueNames(names) {
		c, err := t.AddColumn(name)
		if err != nil {
			return nil, fmt.Errorf("flatten cellset: %w", err)
		}
		cols[i] = c
	}
	rowCols, valueCols := cols[:depth], cols[depth:]

	for r, tuple := range cs.Rows {
		for i, c := range rowCols {
			if i < len(tuple) {
				c.Append(table.Text(tuple[i]))
			} else {
				c.Append(table.Null())
			}
		}
		var cells []string
		if r < len(cs.Cells) {
			cells = cs.Cells[r]
		}
		for i, c := range valueCols {
			if i < len(cells) && cells[i] != "" {
				c.Append(table.InferScalar(cells[i]))
			} else {
				c.Append(table.Null())
			}
		}
	}
	return t, nil
}
