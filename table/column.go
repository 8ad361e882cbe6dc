package table

// Type is the declared type of a column.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeNumber
	TypeText
	TypeDateTime
	TypeMixed
)

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "Number"
	case TypeText:
		return "Text"
	case TypeDateTime:
		return "DateTime"
	case TypeMixed:
		return "Mixed"
	default:
		return "Unknown"
	}
}

// Column is a named, independently typed sequence of cells.
type Column struct {
	Name   string
	typ    Type
	values []Value
}

// NewColumn returns an empty column. Its type is set by the first non-null append.
func NewColumn(name string) *Column {
	return &Column{Name: name}
}

// Type returns the declared type. Once Mixed, always Mixed.
func (c *Column) Type() Type { return c.typ }

func (c *Column) Len() int { return len(c.values) }

// Value returns the i-th cell, or Null when i is out of range.
func (c *Column) Value(i int) Value {
	if i < 0 || i >= len(c.values) {
		return Null()
	}
	return c.values[i]
}

// Values returns a copy of the cells.
func (c *Column) Values() []Value {
	out := make([]Value, len(c.values))
	copy(out, c.values)
	return out
}

// Append adds a cell. A column with no type adopts the cell's type; a cell
// whose type differs from the declared one downgrades the column to Mixed.
// Existing cells are never rewritten. Null cells do not affect the type.
func (c *Column) Append(v Value) {
	c.values = append(c.values, v)
	vt := typeOf(v.Kind)
	switch {
	case vt == TypeUnknown, c.typ == TypeMixed:
	case c.typ == TypeUnknown:
		c.typ = vt
	case c.typ != vt:
		c.typ = TypeMixed
	}
}

// AppendRaw infers the cell type from text and appends it.
func (c *Column) AppendRaw(text string) {
	c.Append(InferScalar(text))
}

func (c *Column) clone() *Column {
	return &Column{Name: c.Name, typ: c.typ, values: c.Values()}
}
