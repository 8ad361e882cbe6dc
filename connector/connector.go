package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spektr-org/tabula/table"
)

// ============================================================================
// CONNECTORS: "produce tabular data, or fail with a message"
// ============================================================================
// A Connector turns a query (SQL text, an MDX statement, a file path, a
// URL) into a table. Connectors are registered under a source kind in an
// explicit Registry built at startup; nothing is discovered at runtime.
// ============================================================================

var (
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrNotFound              = errors.New("not found")
)

// Connector fetches one table for a query.
type Connector interface {
	Fetch(ctx context.Context, query string) (*table.Table, error)
}

// Func adapts a plain function to Connector.
type Func func(ctx context.Context, query string) (*table.Table, error)

func (f Func) Fetch(ctx context.Context, query string) (*table.Table, error) {
	return f(ctx, query)
}

// Well-known source kinds.
const (
	KindSQL  = "sql"
	KindOLAP = "olap"
	KindPath = "path"
	KindWeb  = "web"
)

// Registry maps a source kind to its connector.
type Registry struct {
	connectors map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds c under kind. Registering the same kind twice is an error.
func (r *Registry) Register(kind string, c Connector) error {
	key := strings.ToLower(kind)
	if _, exists := r.connectors[key]; exists {
		return fmt.Errorf("connector %q: %w", kind, ErrDuplicateRegistration)
	}
	r.connectors[key] = c
	return nil
}

// Lookup returns the connector registered under kind.
func (r *Registry) Lookup(kind string) (Connector, error) {
	c, ok := r.connectors[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("connector %q: %w", kind, ErrNotFound)
	}
	return c, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.connectors))
	for k := range r.connectors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ============================================================================
// ERROR TABLES: failures as data
// ============================================================================
// Pipelines show a failed source as an ordinary two-column result so one
// bad source does not abort the rest. Callers that care check IsErrorTable.
// ============================================================================

const (
	errorResultColumn  = "Result"
	errorMessageColumn = "Message"
	errorResultValue   = "Error"
)

// ErrorTable renders err as a Result,Message table.
func ErrorTable(err error) *table.Table {
	t := table.New("")
	res, _ := t.AddColumn(errorResultColumn)
	msg, _ := t.AddColumn(errorMessageColumn)
	res.Append(table.Text(errorResultValue))
	msg.Append(table.Text(oneLine(err.Error())))
	return t
}

// IsErrorTable reports whether t has the shape ErrorTable produces.
func IsErrorTable(t *table.Table) bool {
	if t == nil || t.NumColumns() != 2 || t.RowCount() != 1 {
		return false
	}
	names := t.ColumnNames()
	if names[0] != errorResultColumn || names[1] != errorMessageColumn {
		return false
	}
	c, _ := t.ColumnAt(0)
	return c.Value(0).String() == errorResultValue
}

// ErrorMessage returns the message of an error table, or "".
func ErrorMessage(t *table.Table) string {
	if !IsErrorTable(t) {
		return ""
	}
	c, _ := t.ColumnAt(1)
	return c.Value(0).String()
}

// FetchOrError never fails: connector errors come back as an error table.
func FetchOrError(ctx context.Context, c Connector, query string) *table.Table {
	t, err := c.Fetch(ctx, query)
	if err != nil {
		return ErrorTable(err)
	}
	return t
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
