package connector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spektr-org/tabula/sqlbridge"
	"github.com/spektr-org/tabula/table"
)

// SQL runs queries against an external database/sql source.
type SQL struct {
	DB *sql.DB
}

func (s SQL) Fetch(ctx context.Context, query string) (*table.Table, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sql source: %w", err)
	}
	defer rows.Close()
	t, err := sqlbridge.Materialize(rows)
	if err != nil {
		return nil, fmt.Errorf("sql source: %w", err)
	}
	return t, nil
}
