package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/tabula/table"
)

// ============================================================================
// CSV HELPER: Parses delimited text into *table.Table
// ============================================================================
// Consumer reads the bytes from wherever they live (file, HTTP, a step
// parameter). This helper turns them into a typed table.
// Accepts the format table.WriteDelimited produces: every field quoted,
// quotes doubled, optional header, optional leading row-label column.
// ============================================================================

// ParseOptions controls how delimited text is read.
type ParseOptions struct {
	Name      string // table name
	NoHeader  bool   // first line is data; columns are named Column1..N
	RawText   bool   // keep every cell as Text instead of inferring
	RowLabel  bool   // first field of every line is the row-label column
	Separator rune   // default ','
}

// ParseCSV parses delimited bytes into a table.
// Lines shorter than the header are padded with nulls; longer lines are
// truncated to the header width.
func ParseCSV(data []byte, opts ...ParseOptions) (*table.Table, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	return ParseReader(bytes.NewReader(data), opt)
}

// ParseReader is ParseCSV over an io.Reader.
func ParseReader(r io.Reader, opt ParseOptions) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opt.Separator != 0 {
		reader.Comma = opt.Separator
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited text: %w", err)
	}

	t := table.New(opt.Name)
	if len(records) == 0 {
		return t, nil
	}

	var headers []string
	if opt.NoHeader {
		width := 0
		for _, rec := range records {
			if len(rec) > width {
				width = len(rec)
			}
		}
		headers = make([]string, width)
		for i := range headers {
			headers[i] = "Column" + strconv.Itoa(i+1)
		}
		if opt.RowLabel && width > 0 {
			headers[0] = "Label"
		}
	} else {
		headers, records = records[0], records[1:]
	}

	var label *table.Column
	if opt.RowLabel {
		if len(headers) == 0 {
			return nil, errors.New("row label requested but the header is empty")
		}
		label = table.NewColumn(headers[0])
		headers = headers[1:]
	}

	for _, h := range headers {
		if _, err := t.AddColumn(h); err != nil {
			return nil, err
		}
	}
	cols := t.Columns()
	if label != nil {
		cols = append([]*table.Column{label}, cols...)
	}

	// fields[i][r] is column i of line r; nil marks a short line.
	fields := make([][]*string, len(cols))
	for i := range fields {
		fields[i] = make([]*string, len(records))
	}
	for r, rec := range records {
		for i := range cols {
			if i < len(rec) {
				fields[i][r] = &rec[i]
			}
		}
	}
	for i, c := range cols {
		fillColumn(c, fields[i], opt.RawText)
	}
	if label != nil {
		t.SetLabel(label)
	}
	return t, nil
}

// fillColumn appends one column's fields. Missing fields are null. With
// inference on, an empty field is null too unless the column holds text,
// so numeric and date columns keep their type across an export and
// re-import while text columns keep their empty strings.
func fillColumn(c *table.Column, fields []*string, raw bool) {
	if raw {
		for _, f := range fields {
			if f == nil {
				c.Append(table.Null())
			} else {
				c.Append(table.Text(*f))
			}
		}
		return
	}

	vals := make([]table.Value, len(fields))
	textual := false
	for r, f := range fields {
		if f == nil || isBlank(*f) {
			continue
		}
		vals[r] = table.InferScalar(*f)
		if vals[r].Kind == table.KindText {
			textual = true
		}
	}
	for r, f := range fields {
		switch {
		case f == nil:
			c.Append(table.Null())
		case isBlank(*f) && textual:
			c.Append(table.Text(*f))
		case isBlank(*f):
			c.Append(table.Null())
		default:
			c.Append(vals[r])
		}
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
