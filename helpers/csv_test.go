package helpers

import (
	"errors"
	"testing"

	"github.com/spektr-org/tabula/table"
)

// Sample finance export, mixed types per column on purpose.
var financeCSV = []byte("Month,Location,Amount,Booked\r\n" +
	"Jan-2026,Singapore,8500.00,2026-01-03\r\n" +
	"Jan-2026,\"Kuala \"\"KL\"\" Lumpur\",2200.50,2026-01-04\r\n" +
	"Feb-2026,India,-120,2026-02-01T09:30:00Z\r\n")

func TestParseCSVInfersTypes(t *testing.T) {
	tbl, err := ParseCSV(financeCSV, ParseOptions{Name: "finance"})
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if tbl.RowCount() != 3 || tbl.NumColumns() != 4 {
		t.Fatalf("shape = %dx%d, want 3x4", tbl.RowCount(), tbl.NumColumns())
	}

	wantTypes := map[string]table.Type{
		"Month":    table.TypeText,
		"Location": table.TypeText,
		"Amount":   table.TypeNumber,
		"Booked":   table.TypeDateTime,
	}
	for name, want := range wantTypes {
		c, err := tbl.Column(name)
		if err != nil {
			t.Fatal(err)
		}
		if c.Type() != want {
			t.Errorf("%s type = %s, want %s", name, c.Type(), want)
		}
	}

	loc, _ := tbl.Column("Location")
	if got := loc.Value(1).Str; got != `Kuala "KL" Lumpur` {
		t.Errorf("quoted field = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	orig, err := ParseCSV(financeCSV)
	if err != nil {
		t.Fatal(err)
	}
	label := table.NewColumn("Row")
	for _, s := range []string{"a", "b", "c"} {
		label.AppendRaw(s)
	}
	orig.SetLabel(label)

	text := orig.Delimited()
	back, err := ParseCSV([]byte(text), ParseOptions{RowLabel: true})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if back.RowCount() != orig.RowCount() || back.NumColumns() != orig.NumColumns() {
		t.Fatalf("shape changed: %dx%d -> %dx%d", orig.RowCount(), orig.NumColumns(), back.RowCount(), back.NumColumns())
	}

	want, _ := orig.Rows()
	got, _ := back.Rows()
	for i := range want {
		for j := range want[i] {
			if !want[i][j].Equal(got[i][j]) {
				t.Errorf("cell [%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestParseCSVNoHeader(t *testing.T) {
	tbl, err := ParseCSV([]byte("1,2\n3\n"), ParseOptions{NoHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	if names := tbl.ColumnNames(); len(names) != 2 || names[0] != "Column1" || names[1] != "Column2" {
		t.Errorf("names = %v", names)
	}
	c, _ := tbl.Column("Column2")
	if !c.Value(1).IsNull() {
		t.Errorf("short line not padded with null")
	}
}

func TestParseCSVRawText(t *testing.T) {
	tbl, _ := ParseCSV([]byte("a\n1\n"), ParseOptions{RawText: true})
	c, _ := tbl.Column("a")
	if c.Type() != table.TypeText {
		t.Errorf("type = %s, want Text", c.Type())
	}
}

func TestParseCSVDuplicateHeader(t *testing.T) {
	_, err := ParseCSV([]byte("a,a\n1,2\n"))
	if !errors.Is(err, table.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	tbl, err := ParseCSV(nil)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.NumColumns() != 0 || tbl.RowCount() != 0 {
		t.Errorf("empty input should give an empty table")
	}
}

func TestRoundTripKeepsNulls(t *testing.T) {
	orig := table.New("scores")
	id, _ := orig.AddColumn("id")
	v, _ := orig.AddColumn("v")
	note, _ := orig.AddColumn("note")
	when, _ := orig.AddColumn("when")
	for _, row := range [][4]table.Value{
		{table.Number(1), table.Number(10), table.Text("ok"), table.InferScalar("2024-01-05")},
		{table.Number(2), table.Null(), table.Text(""), table.Null()},
		{table.Number(3), table.Number(20), table.Text("late"), table.InferScalar("2024-02-01")},
	} {
		id.Append(row[0])
		v.Append(row[1])
		note.Append(row[2])
		when.Append(row[3])
	}

	back, err := ParseCSV([]byte(orig.Delimited()))
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}

	tests := []struct {
		column   string
		wantType table.Type
		row      int
		wantNull bool
	}{
		{"v", table.TypeNumber, 1, true},
		{"when", table.TypeDateTime, 1, true},
		{"note", table.TypeText, 1, false},
	}
	for _, tt := range tests {
		c, err := back.Column(tt.column)
		if err != nil {
			t.Fatal(err)
		}
		if c.Type() != tt.wantType {
			t.Errorf("%s type = %s, want %s", tt.column, c.Type(), tt.wantType)
		}
		if got := c.Value(tt.row).IsNull(); got != tt.wantNull {
			t.Errorf("%s[%d] null = %v, want %v", tt.column, tt.row, got, tt.wantNull)
		}
	}

	mean, err := back.Mean("v")
	if err != nil {
		t.Fatalf("Mean after round trip: %v", err)
	}
	if mean != 15 {
		t.Errorf("mean = %v, want 15", mean)
	}
	if n, _ := back.Column("note"); n.Value(1).Str != "" || n.Value(1).Kind != table.KindText {
		t.Errorf("empty text cell = %#v, want empty Text", n.Value(1))
	}
}
