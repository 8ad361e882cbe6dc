package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spektr-org/tabula/catalog"
	"github.com/spektr-org/tabula/connector"
	"github.com/spektr-org/tabula/helpers"
	"github.com/spektr-org/tabula/sqlbridge"
	"github.com/spektr-org/tabula/table"
)

// ============================================================================
// ACTIONS: built-in kinds plus registered extensions
// ============================================================================
// An ActionSpec is the stored form of an action: a kind and string
// parameters. Build turns it into a runnable Action. The built-in kinds
// are dispatched by a switch; anything else must be registered.
// ============================================================================

const (
	KindIdentity         = "identity"
	KindConstant         = "constant"
	KindTemplate         = "template"
	KindSQL              = "sql"
	KindCatalogLoad      = "catalog-load"
	KindCatalogTransform = "catalog-transform"
)

// DefaultOutputKey is where text-producing actions write their result.
const DefaultOutputKey = "output"

var (
	ErrUnknownAction         = errors.New("unknown action kind")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrMissingParameter      = errors.New("missing action parameter")
	ErrNoCatalog             = errors.New("no catalog in build context")
)

// ActionSpec is the serializable description of an action.
type ActionSpec struct {
	Kind   string            `msgpack:"kind" json:"kind"`
	Params map[string]string `msgpack:"params,omitempty" json:"params,omitempty"`
}

// BuildContext carries what actions may need at build time.
type BuildContext struct {
	Catalog  *catalog.Catalog
	Registry *Registry
	Logger   *slog.Logger
}

// Build turns spec into an Action.
func Build(spec ActionSpec, bctx BuildContext) (Action, error) {
	p := spec.Params
	switch strings.ToLower(spec.Kind) {
	case "", KindIdentity:
		return Identity{}, nil
	case KindConstant:
		return Constant{Values: copyMap(p)}, nil
	case KindTemplate:
		text, ok := p["text"]
		if !ok {
			return nil, fmt.Errorf("%s: text: %w", KindTemplate, ErrMissingParameter)
		}
		return Template{Text: text, Output: p["output"]}, nil
	case KindSQL:
		q, ok := p["query"]
		if !ok {
			return nil, fmt.Errorf("%s: query: %w", KindSQL, ErrMissingParameter)
		}
		return SQL{Query: q, Tables: splitList(p["tables"]), Output: p["output"], Logger: bctx.Logger}, nil
	case KindCatalogLoad:
		if bctx.Catalog == nil {
			return nil, fmt.Errorf("%s: %w", KindCatalogLoad, ErrNoCatalog)
		}
		if p["name"] == "" || p["source"] == "" {
			return nil, fmt.Errorf("%s: name and source: %w", KindCatalogLoad, ErrMissingParameter)
		}
		return CatalogLoad{Catalog: bctx.Catalog, Name: p["name"], Source: p["source"], Query: p["query"], Output: p["output"], Logger: bctx.Logger}, nil
	case KindCatalogTransform:
		if bctx.Catalog == nil {
			return nil, fmt.Errorf("%s: %w", KindCatalogTransform, ErrNoCatalog)
		}
		if p["name"] == "" || p["query"] == "" {
			return nil, fmt.Errorf("%s: name and query: %w", KindCatalogTransform, ErrMissingParameter)
		}
		return CatalogTransform{Catalog: bctx.Catalog, Name: p["name"], Query: p["query"], Output: p["output"]}, nil
	}
	if bctx.Registry != nil {
		if f, ok := bctx.Registry.lookup(spec.Kind); ok {
			return f(copyMap(p), bctx)
		}
	}
	return nil, fmt.Errorf("action %q: %w", spec.Kind, ErrUnknownAction)
}

// ----------------------------------------------------------------------------
// identity / constant / template
// ----------------------------------------------------------------------------

// Identity returns its input unchanged.
type Identity struct{}

func (Identity) Execute(_ context.Context, in map[string]string) (map[string]string, error) {
	return copyMap(in), nil
}

// Constant ignores its input and returns Values.
type Constant struct {
	Values map[string]string
}

func (c Constant) Execute(context.Context, map[string]string) (map[string]string, error) {
	return copyMap(c.Values), nil
}

// Template replaces {key} in Text with input values. Where tokens
// overlap, the longer key wins.
type Template struct {
	Text   string
	Output string
}

func (t Template) Execute(_ context.Context, in map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", in[k])
	}
	return map[string]string{outputKey(t.Output): strings.NewReplacer(pairs...).Replace(t.Text)}, nil
}

// ----------------------------------------------------------------------------
// sql
// ----------------------------------------------------------------------------

// SQL parses input values as delimited text, stages them as @Table1..N in
// the order Tables lists their keys (sorted input keys when empty), runs
// Query in a throwaway session and writes the result as delimited text.
type SQL struct {
	Query  string
	Tables []string
	Output string
	Logger *slog.Logger
}

func (s SQL) Execute(ctx context.Context, in map[string]string) (map[string]string, error) {
	keys := s.Tables
	if len(keys) == 0 {
		keys = make([]string, 0, len(in))
		for k := range in {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	tables := make([]*table.Table, len(keys))
	for i, k := range keys {
		text, ok := in[k]
		if !ok {
			return nil, fmt.Errorf("sql input %q: %w", k, ErrMissingParameter)
		}
		t, err := helpers.ParseCSV([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("sql input %q: %w", k, err)
		}
		tables[i] = t
	}

	var opts []sqlbridge.Option
	if s.Logger != nil {
		opts = append(opts, sqlbridge.WithLogger(s.Logger))
	}
	result, err := sqlbridge.Query(ctx, s.Query, tables, opts...)
	if err != nil {
		return nil, err
	}
	out := ""
	if result != nil {
		if out, err = delimited(result); err != nil {
			return nil, err
		}
	}
	return map[string]string{outputKey(s.Output): out}, nil
}

// ----------------------------------------------------------------------------
// catalog
// ----------------------------------------------------------------------------

// CatalogLoad loads Name from Source. Input keys are available to Query
// as @key parameters. A source that fails to fetch does not fail the
// step: its output is a Result,Message error table and Name stays absent.
type CatalogLoad struct {
	Catalog *catalog.Catalog
	Name    string
	Source  string
	Query   string
	Output  string
	Logger  *slog.Logger
}

func (a CatalogLoad) Execute(ctx context.Context, in map[string]string) (map[string]string, error) {
	q, err := catalog.Substitute(a.Query, params(in))
	if err != nil {
		return nil, err
	}
	if err := a.Catalog.Load(ctx, a.Name, a.Source, q); err != nil {
		if !errors.Is(err, catalog.ErrSourceFailed) {
			return nil, err
		}
		if a.Logger != nil {
			a.Logger.Warn("source failed, passing error table on", "table", a.Name, "source", a.Source, "error", err)
		}
		out, derr := delimited(connector.ErrorTable(err))
		if derr != nil {
			return nil, derr
		}
		return map[string]string{outputKey(a.Output): out}, nil
	}
	return contents(a.Catalog, a.Name, a.Output)
}

// CatalogTransform defines Name as a view over Query.
type CatalogTransform struct {
	Catalog *catalog.Catalog
	Name    string
	Query   string
	Output  string
}

func (a CatalogTransform) Execute(ctx context.Context, in map[string]string) (map[string]string, error) {
	q, err := catalog.Substitute(a.Query, params(in))
	if err != nil {
		return nil, err
	}
	if err := a.Catalog.Transform(ctx, a.Name, q); err != nil {
		return nil, err
	}
	return contents(a.Catalog, a.Name, a.Output)
}

func contents(c *catalog.Catalog, name, output string) (map[string]string, error) {
	t, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	out, err := delimited(t)
	if err != nil {
		return nil, err
	}
	return map[string]string{outputKey(output): out}, nil
}

func delimited(t *table.Table) (string, error) {
	var buf bytes.Buffer
	if err := t.WriteDelimited(&buf); err != nil {
		return "", fmt.Errorf("export %q: %w", t.Name, err)
	}
	return buf.String(), nil
}

func params(in map[string]string) map[string]any {
	p := make(map[string]any, len(in))
	for k, v := range in {
		p[catalog.ParamPrefix+k] = v
	}
	return p
}

// ============================================================================
// HELPERS
// ============================================================================

func outputKey(k string) string {
	if k == "" {
		return DefaultOutputKey
	}
	return k
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
