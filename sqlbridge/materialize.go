package sqlbridge

import (
	"database/sql"
	"time"

	"github.com/spektr-org/tabula/table"
)

// Materialize reads a result set into a table. Text results are run back
// through type inference; repeated result column names get a counter
// suffix (id, id2, ...) that never collides with another result column.
func Materialize(rows *sql.Rows) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := table.New("")
	for _, name := range table.UniqueNames(names) {
		if _, err := t.AddColumn(name); err != nil {
			return nil, err
		}
	}
	cols := t.Columns()

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range cols {
			c.Append(toValue(raw[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func toValue(v any) table.Value {
	switch x := v.(type) {
	case nil:
		return table.Null()
	case int64:
		return table.Number(float64(x))
	case float64:
		return table.Number(x)
	case bool:
		if x {
			return table.Number(1)
		}
		return table.Number(0)
	case time.Time:
		return table.DateTime(x)
	case []byte:
		return table.InferScalar(string(x))
	case string:
		return table.InferScalar(x)
	default:
		return table.Null()
	}
}
