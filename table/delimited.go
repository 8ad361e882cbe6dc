package table

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// ============================================================================
// DELIMITED EXPORT
// ============================================================================
// Every field is double-quoted and embedded quotes are doubled. The
// row-label column, when present, is written first on every line,
// header line included. encoding/csv only quotes when it has to, so the
// writer is done by hand.
// ============================================================================

// WriteOptions controls delimited export.
type WriteOptions struct {
	NoHeader  bool
	Separator rune // default ','
}

// WriteDelimited serializes the table.
func (t *Table) WriteDelimited(w io.Writer, opts ...WriteOptions) error {
	var opt WriteOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	sep := opt.Separator
	if sep == 0 {
		sep = ','
	}
	rows, err := t.Rows()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if !opt.NoHeader {
		header := make([]string, 0, len(t.columns)+1)
		if t.label != nil {
			header = append(header, t.label.Name)
		}
		header = append(header, t.ColumnNames()...)
		writeLine(bw, header, sep)
	}
	fields := make([]string, 0, len(t.columns)+1)
	for _, row := range rows {
		fields = fields[:0]
		for _, v := range row {
			fields = append(fields, v.String())
		}
		writeLine(bw, fields, sep)
	}
	return bw.Flush()
}

// Delimited returns the delimited text form, or "" when the table is
// ragged.
func (t *Table) Delimited(opts ...WriteOptions) string {
	var buf bytes.Buffer
	if err := t.WriteDelimited(&buf, opts...); err != nil {
		return ""
	}
	return buf.String()
}

func writeLine(w *bufio.Writer, fields []string, sep rune) {
	for i, f := range fields {
		if i > 0 {
			w.WriteRune(sep)
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
