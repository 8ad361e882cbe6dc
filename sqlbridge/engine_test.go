package sqlbridge

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spektr-org/tabula/table"
)

func mustTable(t *testing.T, name string, headers []string, rows [][]string) *table.Table {
	t.Helper()
	tbl, err := table.FromRows(name, headers, rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return tbl
}

func TestQueryJoinsStagedTables(t *testing.T) {
	ctx := context.Background()
	people := mustTable(t, "people", []string{"id", "full name"}, [][]string{{"1", "Ada"}, {"2", "Linus"}})
	scores := mustTable(t, "scores", []string{"person id", "score"}, [][]string{{"1", "9.5"}, {"2", "7"}, {"1", "0.5"}})

	got, err := Query(ctx, `
		select p."full name" as name, sum(s.score) as total
		from @Table1 p join @Table2 s on s."person id" = p.id
		group by p."full name" order by total desc`,
		[]*table.Table{people, scores})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got.RowCount() != 2 {
		t.Fatalf("rows = %d, want 2", got.RowCount())
	}
	name, _ := got.Column("name")
	total, _ := got.Column("total")
	if name.Value(0).Str != "Ada" || total.Value(0).Num != 10 {
		t.Errorf("first row = %v, %v; want Ada, 10", name.Value(0), total.Value(0))
	}
	if total.Type() != table.TypeNumber {
		t.Errorf("total type = %s, want Number", total.Type())
	}
}

func TestQueryUnnamedTablesArePositional(t *testing.T) {
	a := mustTable(t, "", []string{"x"}, [][]string{{"1"}})
	b := mustTable(t, "", []string{"x"}, [][]string{{"2"}})
	got, err := Query(context.Background(), "SELECT x FROM @Table2", []*table.Table{a, b})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := got.Column("x")
	if c.Value(0).Num != 2 {
		t.Errorf("x = %v, want 2", c.Value(0))
	}
}

func TestRunNonQueryReturnsNil(t *testing.T) {
	ctx := context.Background()
	eng, err := NewSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	got, err := eng.Run(ctx, "create table t (a)")
	if err != nil || got != nil {
		t.Fatalf("Run(create) = %v, %v; want nil, nil", got, err)
	}
	if _, err := eng.Run(ctx, "insert into t values (1), ('two')"); err != nil {
		t.Fatal(err)
	}
	res, err := eng.Run(ctx, "   SELECT a FROM t")
	if err != nil {
		t.Fatal(err)
	}
	c, _ := res.Column("a")
	if c.Type() != table.TypeMixed {
		t.Errorf("type = %s, want Mixed", c.Type())
	}
}

func TestRunErrorIsSingleLine(t *testing.T) {
	ctx := context.Background()
	eng, _ := NewSession(ctx)
	defer eng.Close()

	_, err := eng.Run(ctx, "select *\nfrom\nmissing_table")
	var qe *QueryExecutionError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryExecutionError, got %v", err)
	}
	if strings.ContainsAny(qe.Message, "\r\n") {
		t.Errorf("message has line breaks: %q", qe.Message)
	}
}

func TestStageDuplicateNames(t *testing.T) {
	ctx := context.Background()
	eng, _ := NewSession(ctx)
	defer eng.Close()

	a := mustTable(t, "T", []string{"x"}, nil)
	b := mustTable(t, "t", []string{"y"}, nil)
	if err := eng.Stage(ctx, a, b); !errors.Is(err, ErrDuplicateTableName) {
		t.Fatalf("expected ErrDuplicateTableName, got %v", err)
	}
}

func TestStageFailureKeepsEarlierTables(t *testing.T) {
	ctx := context.Background()
	eng, _ := NewSession(ctx)
	defer eng.Close()

	good := mustTable(t, "good", []string{"n"}, [][]string{{"1"}, {"2"}})
	bad := table.New("bad")
	s, _ := bad.AddColumn("s")
	s.Append(table.Text("fine"))
	s.Append(table.Text("cut\x00short"))

	err := eng.Stage(ctx, good, bad)
	var qe *QueryExecutionError
	if !errors.As(err, &qe) {
		t.Fatalf("Stage err = %v, want QueryExecutionError", err)
	}

	tests := []struct {
		relation string
		want     float64
	}{
		{"good", 2},
		{"bad", 0},
	}
	for _, tt := range tests {
		got, err := eng.Run(ctx, `select count(*) as c from `+QuoteIdent(tt.relation))
		if err != nil {
			t.Fatalf("count %s: %v", tt.relation, err)
		}
		c, _ := got.Column("c")
		if c.Value(0).Num != tt.want {
			t.Errorf("%s rows = %v, want %v", tt.relation, c.Value(0), tt.want)
		}
	}
}

func TestStageRenamedDuplicateColumns(t *testing.T) {
	tbl := mustTable(t, "t", []string{"A", "B", "A2"}, [][]string{{"1", "2", "3"}})
	if err := tbl.Rename("B", "A"); err != nil {
		t.Fatal(err)
	}
	got, err := Query(context.Background(), `select "A3" as b, "A2" as c from @Table1`, []*table.Table{tbl})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := got.Column("b")
	c, _ := got.Column("c")
	if b.Value(0).Num != 2 || c.Value(0).Num != 3 {
		t.Errorf("b, c = %v, %v; want 2, 3", b.Value(0), c.Value(0))
	}
}

func TestMaterializeRepeatedColumnNames(t *testing.T) {
	got, err := Query(context.Background(), `select 1 as id, 2 as id, 3 as id2`, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"id", "id3", "id2"}
	names := got.ColumnNames()
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("columns = %v, want %v", names, want)
		}
	}
}

func TestStageKeepsLabelColumn(t *testing.T) {
	ctx := context.Background()
	tbl := mustTable(t, "t", []string{"v"}, [][]string{{"1"}, {"2"}})
	label := table.NewColumn("tag")
	label.AppendRaw("a")
	label.AppendRaw("b")
	tbl.SetLabel(label)

	got, err := Query(ctx, "select tag from @Table1 where v = 2", []*table.Table{tbl})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := got.Column("tag")
	if c.Value(0).Str != "b" {
		t.Errorf("tag = %v, want b", c.Value(0))
	}
}

func TestViewAndDrop(t *testing.T) {
	ctx := context.Background()
	eng, _ := NewSession(ctx)
	defer eng.Close()

	if err := eng.Stage(ctx, mustTable(t, "base", []string{"n"}, [][]string{{"1"}, {"2"}, {"3"}})); err != nil {
		t.Fatal(err)
	}
	if err := eng.CreateView(ctx, "big", `select n from "base" where n > 1;`); err != nil {
		t.Fatal(err)
	}
	got, err := eng.Run(ctx, `select count(*) as c from "big"`)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := got.Column("c")
	if c.Value(0).Num != 2 {
		t.Errorf("count = %v, want 2", c.Value(0))
	}

	for _, name := range []string{"big", "base", "never-existed"} {
		if err := eng.Drop(ctx, name); err != nil {
			t.Errorf("Drop(%s): %v", name, err)
		}
	}
	if len(eng.Staged()) != 0 {
		t.Errorf("staged = %v, want empty", eng.Staged())
	}
}

func TestIsSelect(t *testing.T) {
	tests := map[string]bool{
		"select 1":        true,
		"  \n\tSELECT *":  true,
		"Select":          true,
		"selection":       false,
		"insert into t":   false,
		"with x as (...)": false,
		"":                false,
	}
	for in, want := range tests {
		if got := IsSelect(in); got != want {
			t.Errorf("IsSelect(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   table.Value
		want string
	}{
		{table.Null(), "NULL"},
		{table.Number(2.5), "2.5"},
		{table.Number(math.NaN()), "NULL"},
		{table.Number(math.Inf(-1)), "NULL"},
		{table.Text("42"), "42"},
		{table.Text("O'Brien"), "'O''Brien'"},
		{table.InferScalar("2024-01-05"), "'2024-01-05'"},
	}
	for _, tt := range tests {
		if got := Literal(tt.in); got != tt.want {
			t.Errorf("Literal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestReplaceTablePlaceholders(t *testing.T) {
	names := make([]string, 10)
	for i := range names {
		names[i] = "t" + string(rune('a'+i))
	}
	got, err := ReplaceTablePlaceholders("select * from @Table1, @Table10", names)
	if err != nil {
		t.Fatal(err)
	}
	if got != `select * from "ta", "tj"` {
		t.Errorf("got %s", got)
	}

	if _, err := ReplaceTablePlaceholders("select * from @Table3", names[:2]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
