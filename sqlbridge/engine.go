package sqlbridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/spektr-org/tabula/table"
)

// ============================================================================
// SQL BRIDGE: Stage tables into SQLite, run SQL, materialize results
// ============================================================================
// An Engine owns one SQLite database behind a single connection, so an
// in-memory database is shared by every statement run through it.
//
// Two lifetimes:
//   Open(ctx, dsn)  : long-lived, used by the catalog for a whole session
//   NewSession(ctx) : throwaway ":memory:" engine for one ad-hoc query
//
// Rows are inserted as SQL literals, not bound parameters. Inputs are
// operator-authored; this is not a security boundary.
// ============================================================================

const driverName = "sqlite"

// Engine is one embedded SQL engine instance. Not safe for concurrent use.
type Engine struct {
	db     *sql.DB
	staged []string
	log    *slog.Logger
}

// Open connects to the SQLite database named by dsn.
func Open(ctx context.Context, dsn string, opts ...Option) (*Engine, error) {
	cfg := applyOptions(opts)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sql engine: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sql engine: %w", err)
	}
	return &Engine{db: db, log: cfg.logger}, nil
}

// NewSession opens a fresh, isolated in-memory engine.
func NewSession(ctx context.Context, opts ...Option) (*Engine, error) {
	return Open(ctx, ":memory:", opts...)
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// Staged returns the relation names created by Stage, in staging order.
func (e *Engine) Staged() []string {
	out := make([]string, len(e.staged))
	copy(out, e.staged)
	return out
}

// Stage creates one relation per table and fills it. Unnamed tables are
// named TableN after their position among everything staged so far.
// Each table is inserted in its own transaction: a failure leaves the
// tables staged before it in place.
func (e *Engine) Stage(ctx context.Context, tables ...*table.Table) error {
	names := make([]string, len(tables))
	seen := make(map[string]bool, len(e.staged)+len(tables))
	for _, n := range e.staged {
		seen[strings.ToLower(n)] = true
	}
	for i, t := range tables {
		name := t.Name
		if name == "" {
			name = "Table" + strconv.Itoa(len(e.staged)+i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("table %q: %w", name, ErrDuplicateTableName)
		}
		seen[key] = true
		names[i] = name
	}

	for i, t := range tables {
		if err := e.createTable(ctx, names[i], t); err != nil {
			return err
		}
		e.staged = append(e.staged, names[i])
		if err := e.insertRows(ctx, names[i], t); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) createTable(ctx context.Context, name string, t *table.Table) error {
	keys := t.RowKeys()
	if len(keys) == 0 {
		return queryError("", fmt.Errorf("table %q has no columns", name))
	}
	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = QuoteIdent(k)
	}
	stmt := "CREATE TABLE " + QuoteIdent(name) + " (" + strings.Join(cols, ", ") + ");"
	return e.exec(ctx, stmt)
}

// InsertRows inserts every row of t into the relation named t.Name inside
// one transaction.
func (e *Engine) InsertRows(ctx context.Context, t *table.Table) error {
	if t.Name == "" {
		return fmt.Errorf("insert into unnamed table: %w", ErrNotFound)
	}
	return e.insertRows(ctx, t.Name, t)
}

func (e *Engine) insertRows(ctx context.Context, name string, t *table.Table) (err error) {
	rows, err := t.Rows()
	if err != nil {
		return err
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return queryError("BEGIN", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prefix := "INSERT INTO " + QuoteIdent(name) + " VALUES ("
	var sb strings.Builder
	for _, row := range rows {
		sb.Reset()
		sb.WriteString(prefix)
		for i, v := range row {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(Literal(v))
		}
		sb.WriteString(");")
		stmt := sb.String()
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return queryError(stmt, execErr)
		}
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return queryError("COMMIT", commitErr)
	}
	e.log.Debug("staged table", "table", name, "rows", len(rows))
	return nil
}

// Run executes one statement. Statements starting with the token
// "select" return a materialized table; anything else returns nil.
func (e *Engine) Run(ctx context.Context, sqlText string) (*table.Table, error) {
	stmt := strings.TrimSpace(sqlText)
	if !IsSelect(stmt) {
		return nil, e.exec(ctx, stmt)
	}
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	e.log.Debug("running query", "sql", singleLine(stmt))
	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, queryError(stmt, err)
	}
	defer rows.Close()
	t, err := Materialize(rows)
	if err != nil {
		return nil, queryError(stmt, err)
	}
	return t, nil
}

func (e *Engine) exec(ctx context.Context, stmt string) error {
	e.log.Debug("executing statement", "sql", singleLine(stmt))
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return queryError(stmt, err)
	}
	return nil
}

// CreateView declares name as a view over selectText.
func (e *Engine) CreateView(ctx context.Context, name, selectText string) error {
	body := strings.TrimRight(strings.TrimSpace(selectText), "; \t\r\n")
	return e.exec(ctx, "CREATE VIEW "+QuoteIdent(name)+" AS "+body+";")
}

// Drop removes the table or view called name. Dropping a name that does
// not exist is not an error.
func (e *Engine) Drop(ctx context.Context, name string) error {
	var kind string
	err := e.db.QueryRowContext(ctx,
		`SELECT type FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE`, name).Scan(&kind)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		e.forget(name)
		return nil
	case err != nil:
		return queryError("lookup "+name, err)
	}
	if err := e.exec(ctx, "DROP "+strings.ToUpper(kind)+" IF EXISTS "+QuoteIdent(name)+";"); err != nil {
		return err
	}
	e.forget(name)
	return nil
}

func (e *Engine) forget(name string) {
	kept := e.staged[:0]
	for _, n := range e.staged {
		if !strings.EqualFold(n, name) {
			kept = append(kept, n)
		}
	}
	e.staged = kept
}

// IsSelect reports whether stmt starts with the token "select",
// ignoring case and leading whitespace.
func IsSelect(stmt string) bool {
	s := strings.TrimSpace(stmt)
	if len(s) < len("select") || !strings.EqualFold(s[:len("select")], "select") {
		return false
	}
	if len(s) == len("select") {
		return true
	}
	next := s[len("select")]
	return !(next == '_' || next >= 'a' && next <= 'z' || next >= 'A' && next <= 'Z' || next >= '0' && next <= '9')
}

// QuoteIdent quotes an identifier so that spaces and punctuation survive.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Literal formats a cell as a SQL literal. Numeric-looking values are
// written bare; everything else is a quoted string. NaN and infinities
// have no SQL literal and become NULL.
func Literal(v table.Value) string {
	switch v.Kind {
	case table.KindNull:
		return "NULL"
	case table.KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return "NULL"
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case table.KindText:
		if table.LooksNumeric(v.Str) {
			return strings.TrimSpace(v.Str)
		}
	}
	return "'" + strings.ReplaceAll(v.String(), "'", "''") + "'"
}
