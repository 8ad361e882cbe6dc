package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spektr-org/tabula/catalog"
	"github.com/spektr-org/tabula/connector"
	"github.com/spektr-org/tabula/helpers"
	"github.com/spektr-org/tabula/logging"
	"github.com/spektr-org/tabula/table"
)

func TestBuildBuiltins(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		spec ActionSpec
		in   map[string]string
		want map[string]string
	}{
		{"empty kind is identity", ActionSpec{}, map[string]string{"a": "1"}, map[string]string{"a": "1"}},
		{"constant", ActionSpec{Kind: "constant", Params: map[string]string{"k": "v"}}, map[string]string{"a": "1"}, map[string]string{"k": "v"}},
		{"template", ActionSpec{Kind: "Template", Params: map[string]string{"text": "hello {who}, {who}!"}}, map[string]string{"who": "Ada"}, map[string]string{"output": "hello Ada, Ada!"}},
		{"template overlapping tokens", ActionSpec{Kind: "template", Params: map[string]string{"text": "{a}{b}"}}, map[string]string{"a": "1", "a}{b": "2"}, map[string]string{"output": "2"}},
		{"template custom output", ActionSpec{Kind: "template", Params: map[string]string{"text": "{n}", "output": "copy"}}, map[string]string{"n": "7"}, map[string]string{"copy": "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Build(tt.spec, BuildContext{})
			if err != nil {
				t.Fatal(err)
			}
			got, err := a.Execute(ctx, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		spec ActionSpec
		want error
	}{
		{ActionSpec{Kind: "nope"}, ErrUnknownAction},
		{ActionSpec{Kind: KindTemplate}, ErrMissingParameter},
		{ActionSpec{Kind: KindSQL}, ErrMissingParameter},
		{ActionSpec{Kind: KindCatalogLoad, Params: map[string]string{"name": "t", "source": "path"}}, ErrNoCatalog},
		{ActionSpec{Kind: KindCatalogTransform}, ErrNoCatalog},
	}
	for _, tt := range tests {
		if _, err := Build(tt.spec, BuildContext{}); !errors.Is(err, tt.want) {
			t.Errorf("Build(%s) err = %v, want %v", tt.spec.Kind, err, tt.want)
		}
	}
}

func TestSQLAction(t *testing.T) {
	a, err := Build(ActionSpec{Kind: KindSQL, Params: map[string]string{
		"tables": "people, scores",
		"query":  `SELECT p.name, s.score FROM @Table1 p JOIN @Table2 s ON s.id = p.id ORDER BY s.score DESC`,
		"output": "joined",
	}}, BuildContext{Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.Execute(context.Background(), map[string]string{
		"people": "id,name\n1,Ada\n2,Linus\n",
		"scores": "id,score\n2,3\n1,9\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := helpers.ParseCSV([]byte(got["joined"]))
	if err != nil {
		t.Fatal(err)
	}
	name, _ := out.Column("name")
	if out.RowCount() != 2 || name.Value(0).Str != "Ada" {
		t.Errorf("joined = %q", got["joined"])
	}

	if _, err := a.Execute(context.Background(), map[string]string{"people": "id\n1\n"}); !errors.Is(err, ErrMissingParameter) {
		t.Errorf("missing table err = %v, want ErrMissingParameter", err)
	}
}

func TestChainedSQLKeepsNulls(t *testing.T) {
	join, err := Build(ActionSpec{Kind: KindSQL, Params: map[string]string{
		"tables": "a, b",
		"query":  `SELECT b.id, a.v FROM @Table2 b LEFT JOIN @Table1 a ON a.id = b.id ORDER BY b.id`,
		"output": "joined",
	}}, BuildContext{})
	if err != nil {
		t.Fatal(err)
	}
	agg, err := Build(ActionSpec{Kind: KindSQL, Params: map[string]string{
		"query":  `SELECT AVG(v) AS avg_v, COUNT(v) AS n FROM @Table1`,
		"output": "stats",
	}}, BuildContext{})
	if err != nil {
		t.Fatal(err)
	}
	root := &Step{
		Name:    "join",
		Inputs:  []Mapping{{From: "a", As: "a"}, {From: "b", As: "b"}},
		Action:  join,
		Outputs: []Mapping{{From: "joined", As: "joined"}},
		Next: []*Step{{
			Name:    "aggregate",
			Inputs:  []Mapping{{From: "joined", As: "joined"}},
			Action:  agg,
			Outputs: []Mapping{{From: "stats", As: "stats"}},
			Final:   true,
		}},
	}

	got, err := Evaluate(context.Background(), []*Step{root}, map[string]string{
		"a": "id,v\n1,10\n2,20\n",
		"b": "id\n1\n2\n3\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	stats, err := helpers.ParseCSV([]byte(got["stats"]))
	if err != nil {
		t.Fatal(err)
	}
	avg, _ := stats.Column("avg_v")
	n, _ := stats.Column("n")
	if avg.Value(0).Num != 15 || n.Value(0).Num != 2 {
		t.Errorf("stats = %q, want avg 15 over 2 values", got["stats"])
	}
}

func TestCatalogActions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("region,amount\nnorth,10\nsouth,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := connector.NewRegistry()
	_ = reg.Register(connector.KindPath, connector.Path{Dir: dir})
	ctx := context.Background()
	cat, err := catalog.New(ctx, reg, catalog.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()
	bctx := BuildContext{Catalog: cat}

	tree := NewTree("sales")
	load := tree.AddRoot(Node{
		Name:    "load",
		Inputs:  []Mapping{{From: "file", As: "file"}, {From: "min", As: "min"}},
		Action:  ActionSpec{Kind: KindCatalogLoad, Params: map[string]string{"name": "sales", "source": "path", "query": "@file"}},
		Outputs: []Mapping{{From: "output", As: "raw"}},
	})
	_, _ = tree.AddChild(load, Node{
		Name:    "filter",
		Action:  ActionSpec{Kind: KindCatalogTransform, Params: map[string]string{"name": "big", "query": "SELECT region FROM sales WHERE amount > 5"}},
		Outputs: []Mapping{{From: "output", As: "big"}},
		Final:   true,
	})
	roots, err := tree.Snapshot(bctx)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Evaluate(ctx, roots, map[string]string{"file": "sales.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if got["big"] != "\"region\"\n\"north\"\n" {
		t.Errorf("big = %q", got["big"])
	}
	if _, ok := got["raw"]; ok {
		t.Error("non-final raw leaked")
	}
	if cat.Kind("sales") != catalog.KindTable || cat.Kind("big") != catalog.KindView {
		t.Errorf("kinds = %s, %s", cat.Kind("sales"), cat.Kind("big"))
	}
}

func TestFailingSourceDoesNotAbortSiblings(t *testing.T) {
	reg := connector.NewRegistry()
	_ = reg.Register(connector.KindWeb, connector.Func(func(context.Context, string) (*table.Table, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))
	ctx := context.Background()
	cat, err := catalog.New(ctx, reg, catalog.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	tree := NewTree("mixed")
	tree.AddRoot(Node{
		Name:    "bad",
		Action:  ActionSpec{Kind: KindCatalogLoad, Params: map[string]string{"name": "remote", "source": "web", "query": "http://example.invalid/data.csv"}},
		Outputs: []Mapping{{From: "output", As: "remote"}},
		Final:   true,
	})
	tree.AddRoot(Node{
		Name:    "good",
		Action:  ActionSpec{Kind: KindConstant, Params: map[string]string{"ok": "yes"}},
		Outputs: []Mapping{{From: "ok", As: "ok"}},
		Final:   true,
	})
	roots, err := tree.Snapshot(BuildContext{Catalog: cat, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}

	got, err := Evaluate(ctx, roots, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got["ok"] != "yes" {
		t.Errorf("healthy root output lost: %v", got)
	}
	remote, err := helpers.ParseCSV([]byte(got["remote"]))
	if err != nil {
		t.Fatal(err)
	}
	if !connector.IsErrorTable(remote) || !strings.Contains(connector.ErrorMessage(remote), "connection refused") {
		t.Errorf("remote = %q, want an error table", got["remote"])
	}
	if cat.Kind("remote") != catalog.KindAbsent {
		t.Errorf("failed load left %q as %s", "remote", cat.Kind("remote"))
	}
}

func TestCatalogLoadUnknownSourceFails(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.New(ctx, connector.NewRegistry(), catalog.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()
	a, err := Build(ActionSpec{Kind: KindCatalogLoad, Params: map[string]string{"name": "t", "source": "ftp"}}, BuildContext{Catalog: cat})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Execute(ctx, nil); !errors.Is(err, connector.ErrNotFound) {
		t.Errorf("err = %v, want connector.ErrNotFound", err)
	}
}

type upper struct{}

func (upper) Execute(_ context.Context, in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = strings.ToUpper(v)
	}
	return out, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	factory := func(map[string]string, BuildContext) (Action, error) { return upper{}, nil }
	if err := r.Register("upper", factory); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("UPPER", factory); !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := r.Register("sql", factory); !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("built-in err = %v", err)
	}

	a, err := Build(ActionSpec{Kind: "Upper"}, BuildContext{Registry: r})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := a.Execute(context.Background(), map[string]string{"a": "x"})
	if got["a"] != "X" {
		t.Errorf("got %v", got)
	}
	kinds := r.Kinds()
	if len(kinds) != len(builtinKinds)+1 {
		t.Errorf("Kinds = %v", kinds)
	}
}

func TestDelimitedRejectsRaggedTable(t *testing.T) {
	tbl := table.New("ragged")
	a, _ := tbl.AddColumn("a")
	_, _ = tbl.AddColumn("b")
	a.Append(table.Number(1))

	if _, err := delimited(tbl); !errors.Is(err, table.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}
