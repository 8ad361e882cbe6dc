// Package catalog keeps a session's named tables and views. Tables are
// loaded from source connectors, views are SQL over what is already
// loaded, and both live in one long-lived SQL engine so later views can
// reference them by name.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spektr-org/tabula/connector"
	"github.com/spektr-org/tabula/render"
	"github.com/spektr-org/tabula/sqlbridge"
	"github.com/spektr-org/tabula/table"
)

// EntryKind says whether a name holds a loaded table or a view.
type EntryKind int

const (
	KindAbsent EntryKind = iota
	KindTable
	KindView
)

func (k EntryKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	default:
		return "absent"
	}
}

// ViewKind is the Declaration kind for view templates.
const ViewKind = "view"

// Declaration is a named query template: a source kind plus the query
// handed to that source's connector, or ViewKind plus SELECT text.
type Declaration struct {
	Kind  string `msgpack:"kind" json:"kind"`
	Query string `msgpack:"query" json:"query"`
}

type entry struct {
	name  string
	kind  EntryKind
	table *table.Table
}

// Catalog is one session's set of named relations. Not safe for
// concurrent use.
type Catalog struct {
	engine       *sqlbridge.Engine
	registry     *connector.Registry
	entries      map[string]*entry
	declarations map[string]Declaration
	cfg          *config
	log          *slog.Logger
}

// New opens the backing engine. Close releases it.
func New(ctx context.Context, registry *connector.Registry, opts ...Option) (*Catalog, error) {
	cfg := applyOptions(opts)
	if registry == nil {
		registry = connector.NewRegistry()
	}
	engine, err := sqlbridge.Open(ctx, cfg.dsn, sqlbridge.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &Catalog{
		engine:       engine,
		registry:     registry,
		entries:      make(map[string]*entry),
		declarations: make(map[string]Declaration),
		cfg:          cfg,
		log:          cfg.logger.With("component", "catalog"),
	}, nil
}

func (c *Catalog) Close() error {
	return c.engine.Close()
}

func key(name string) string { return strings.ToLower(name) }

// ============================================================================
// DECLARATIONS
// ============================================================================

// Declare records a query template under name, replacing any previous one.
func (c *Catalog) Declare(name string, d Declaration) {
	c.declarations[key(name)] = d
}

// DefineView records a view template under name.
func (c *Catalog) DefineView(name, sqlText string) {
	c.Declare(name, Declaration{Kind: ViewKind, Query: sqlText})
}

// Declaration returns the template recorded under name.
func (c *Catalog) Declaration(name string) (Declaration, error) {
	d, ok := c.declarations[key(name)]
	if !ok {
		return Declaration{}, fmt.Errorf("declaration %q: %w", name, ErrNotFound)
	}
	return d, nil
}

// Declarations returns a copy of every recorded template, keyed by
// lower-cased name.
func (c *Catalog) Declarations() map[string]Declaration {
	out := make(map[string]Declaration, len(c.declarations))
	for k, d := range c.declarations {
		out[k] = d
	}
	return out
}

// ============================================================================
// LOAD / TRANSFORM
// ============================================================================

// Prep declares and loads a table. It refuses to replace a name that is
// already a loaded table.
func (c *Catalog) Prep(ctx context.Context, name, kind, query string, params map[string]any) error {
	if e, ok := c.entries[key(name)]; ok && e.kind == KindTable {
		return fmt.Errorf("prep %q: %w", name, ErrAlreadyExists)
	}
	q, err := Substitute(query, params)
	if err != nil {
		return fmt.Errorf("prep %q: %w", name, err)
	}
	c.Declare(name, Declaration{Kind: kind, Query: query})
	return c.Load(ctx, name, kind, q)
}

// Load replaces whatever relation is called name with the table kind's
// connector returns for query. On failure name is left absent; a failing
// connector is reported as ErrSourceFailed.
func (c *Catalog) Load(ctx context.Context, name, kind, query string) error {
	if err := c.Drop(ctx, name); err != nil {
		return err
	}
	conn, err := c.registry.Lookup(kind)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	t, err := conn.Fetch(ctx, query)
	if err != nil {
		c.log.Warn("load failed", "table", name, "kind", kind, "error", err)
		return fmt.Errorf("load %q: %w: %w", name, ErrSourceFailed, err)
	}
	t.Name = name
	if err := c.engine.Stage(ctx, t); err != nil {
		if dropErr := c.engine.Drop(ctx, name); dropErr != nil {
			c.log.Warn("cleanup after failed load", "table", name, "error", dropErr)
		}
		return fmt.Errorf("load %q: %w", name, err)
	}
	c.register(name, KindTable, t)
	return nil
}

// Rewrite reloads name from the template recorded under queryName, or
// under name itself when queryName is empty.
func (c *Catalog) Rewrite(ctx context.Context, name string, params map[string]any, queryName string) error {
	lookup := name
	if queryName != "" {
		lookup = queryName
	}
	d, err := c.Declaration(lookup)
	if err != nil {
		return fmt.Errorf("rewrite %q: %w", name, err)
	}
	q, err := Substitute(d.Query, params)
	if err != nil {
		return fmt.Errorf("rewrite %q: %w", name, err)
	}
	if d.Kind == ViewKind {
		return c.Transform(ctx, name, q)
	}
	return c.Load(ctx, name, d.Kind, q)
}

// View substitutes params into the view template recorded under name and
// transforms it.
func (c *Catalog) View(ctx context.Context, name string, params map[string]any) error {
	d, err := c.Declaration(name)
	if err != nil {
		return fmt.Errorf("view %q: %w", name, err)
	}
	if d.Kind != ViewKind {
		return fmt.Errorf("view %q: declared as %s source: %w", name, d.Kind, ErrNotFound)
	}
	q, err := Substitute(d.Query, params)
	if err != nil {
		return fmt.Errorf("view %q: %w", name, err)
	}
	return c.Transform(ctx, name, q)
}

// Transform (re)defines name as a view over sqlText and caches its
// current contents.
func (c *Catalog) Transform(ctx context.Context, name, sqlText string) error {
	if err := c.Drop(ctx, name); err != nil {
		return err
	}
	if err := c.engine.CreateView(ctx, name, sqlText); err != nil {
		return fmt.Errorf("transform %q: %w", name, err)
	}
	t, err := c.engine.Run(ctx, "SELECT * FROM "+sqlbridge.QuoteIdent(name))
	if err != nil {
		if dropErr := c.engine.Drop(ctx, name); dropErr != nil {
			c.log.Warn("cleanup after failed transform", "view", name, "error", dropErr)
		}
		return fmt.Errorf("transform %q: %w", name, err)
	}
	t.Name = name
	c.register(name, KindView, t)
	return nil
}

// ============================================================================
// ACCESS
// ============================================================================

// Get returns the cached contents of name.
func (c *Catalog) Get(name string) (*table.Table, error) {
	e, ok := c.entries[key(name)]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, ErrNotFound)
	}
	return e.table, nil
}

// Kind reports what name currently holds.
func (c *Catalog) Kind(name string) EntryKind {
	if e, ok := c.entries[key(name)]; ok {
		return e.kind
	}
	return KindAbsent
}

// Names lists every live table and view, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// Drop removes name from the catalog and the backing engine. Dropping an
// absent name is not an error.
func (c *Catalog) Drop(ctx context.Context, name string) error {
	if err := c.engine.Drop(ctx, name); err != nil {
		return fmt.Errorf("drop %q: %w", name, err)
	}
	delete(c.entries, key(name))
	return nil
}

// Query runs ad-hoc SQL against the backing engine. Non-SELECT statements
// return a nil table.
func (c *Catalog) Query(ctx context.Context, sqlText string) (*table.Table, error) {
	return c.engine.Run(ctx, sqlText)
}

// ============================================================================
// BOOKKEEPING
// ============================================================================

func (c *Catalog) register(name string, kind EntryKind, t *table.Table) {
	c.entries[key(name)] = &entry{name: name, kind: kind, table: t}
	c.log.Info("materialized", "name", name, "kind", kind.String(), "rows", t.RowCount(), "columns", t.NumColumns())

	if c.cfg.print != nil {
		if _, err := fmt.Fprintln(c.cfg.print, render.Table(t)); err != nil {
			c.log.Warn("print failed", "name", name, "error", err)
		}
	}
	if c.cfg.sink != nil {
		var buf bytes.Buffer
		if err := t.WriteDelimited(&buf); err != nil {
			c.log.Warn("snapshot skipped", "name", name, "error", err)
			return
		}
		if err := c.cfg.sink.Snapshot(name, buf.String()); err != nil {
			c.log.Warn("snapshot failed", "name", name, "error", err)
		}
	}
}
