package sqlbridge

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/spektr-org/tabula/table"
)

var tablePlaceholder = regexp.MustCompile(`@Table(\d+)`)

// ReplaceTablePlaceholders substitutes @Table1, @Table2, ... with the
// quoted name of the Nth entry of names (1-based). This is plain text
// substitution: identifiers cannot be bound as parameters.
func ReplaceTablePlaceholders(sqlText string, names []string) (string, error) {
	var missing error
	out := tablePlaceholder.ReplaceAllStringFunc(sqlText, func(tok string) string {
		n, err := strconv.Atoi(tok[len("@Table"):])
		if err != nil || n < 1 || n > len(names) {
			if missing == nil {
				missing = fmt.Errorf("placeholder %s with %d staged tables: %w", tok, len(names), ErrNotFound)
			}
			return tok
		}
		return QuoteIdent(names[n-1])
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// Query stages tables into a throwaway engine, resolves @TableN
// placeholders against them and runs sqlText. Non-select statements
// return a nil table.
func Query(ctx context.Context, sqlText string, tables []*table.Table, opts ...Option) (*table.Table, error) {
	eng, err := NewSession(ctx, opts...)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	if err := eng.Stage(ctx, tables...); err != nil {
		return nil, err
	}
	stmt, err := ReplaceTablePlaceholders(sqlText, eng.Staged())
	if err != nil {
		return nil, err
	}
	return eng.Run(ctx, stmt)
}
