package schema

// ============================================================================
// SCHEMA: Describes the shape of a table for people and tooling
// ============================================================================
// Produced by Profile from a materialized table. The CLI prints it for
// -describe; pipelines can use it to pick measures and dimensions without
// hardcoding column names.
// ============================================================================

// Role is how a column is best used in analysis.
type Role string

const (
	RoleDimension Role = "dimension"
	RoleMeasure   Role = "measure"
	RoleSkipped   Role = "skipped"
)

// Config describes the complete shape of a table.
type Config struct {
	Name       string          `json:"name"`
	RowCount   int             `json:"rowCount"`
	Columns    []ColumnProfile `json:"columns"`
	Currency   *CurrencyConfig `json:"currency,omitempty"`
	ProfiledAt string          `json:"profiledAt,omitempty"`
}

// ColumnProfile describes one column.
type ColumnProfile struct {
	Name            string   `json:"name"`
	Key             string   `json:"key"`
	DisplayName     string   `json:"displayName"`
	Type            string   `json:"type"`
	Role            Role     `json:"role"`
	NullCount       int      `json:"nullCount"`
	UniqueCount     int      `json:"uniqueCount"`
	Samples         []string `json:"samples,omitempty"`
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"

	IsTemporal     bool   `json:"isTemporal,omitempty"`
	TemporalFormat string `json:"temporalFormat,omitempty"`
	IsCurrencyCode bool   `json:"isCurrencyCode,omitempty"`
	IsBool         bool   `json:"isBool,omitempty"`
	Parent         string `json:"parent,omitempty"` // parent dimension key for hierarchies

	Stats *NumericStats `json:"stats,omitempty"`

	SkipReason  string `json:"skipReason,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"` // can be restored via RecoverColumns
}

// NumericStats summarizes a numeric column. Std is the population
// standard deviation.
type NumericStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Sum  float64 `json:"sum"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CurrencyConfig points at a column of ISO currency codes.
type CurrencyConfig struct {
	CodeColumn   string `json:"codeColumn"`
	BaseCurrency string `json:"baseCurrency"`
}

func (c Config) byRole(r Role) []ColumnProfile {
	var out []ColumnProfile
	for _, col := range c.Columns {
		if col.Role == r {
			out = append(out, col)
		}
	}
	return out
}

func (c Config) Dimensions() []ColumnProfile { return c.byRole(RoleDimension) }
func (c Config) Measures() []ColumnProfile   { return c.byRole(RoleMeasure) }
func (c Config) Skipped() []ColumnProfile    { return c.byRole(RoleSkipped) }

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	return keys(c.Dimensions())
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	return keys(c.Measures())
}

func keys(cols []ColumnProfile) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Key
	}
	return out
}
