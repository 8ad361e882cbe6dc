package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spektr-org/tabula/helpers"
	"github.com/spektr-org/tabula/table"
)

// Path reads a delimited file. Relative paths resolve against Dir.
type Path struct {
	Dir     string
	Options helpers.ParseOptions
}

func (p Path) Fetch(ctx context.Context, query string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := query
	if p.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("path source: %w", err)
	}
	t, err := helpers.ParseCSV(data, p.Options)
	if err != nil {
		return nil, fmt.Errorf("path source %s: %w", path, err)
	}
	return t, nil
}
