package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/tabula/table"
)

// ============================================================================
// PROFILING: heuristic column classification
// ============================================================================
// Inspects a materialized table and describes each column.
//
// Pipeline per column:
//   1. Drop empty cells → null count, unique values, samples
//   2. Effective type from the remaining cells' kinds
//   3. Pattern matching → currency codes, temporal text, booleans
//   4. Type + cardinality → role (dimension, measure, skipped)
//   5. Numeric summary for number columns
// Then across columns: hierarchy detection and currency detection.
// ============================================================================

// ProfileOptions controls profiling.
type ProfileOptions struct {
	RecoverColumns []string // force-include columns that were skipped
	Name           string   // overrides the table name
	Now            func() time.Time
}

// Profile describes every column of t. The row-label column, if any, is
// profiled first.
func Profile(t *table.Table, opts ...ProfileOptions) *Config {
	var opt ProfileOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}

	cols := t.Columns()
	if l := t.Label(); l != nil {
		cols = append([]*table.Column{l}, cols...)
	}
	totalRows := t.RowCount()

	recoverSet := make(map[string]bool)
	for _, c := range opt.RecoverColumns {
		recoverSet[strings.ToLower(c)] = true
	}

	analyses := make([]columnAnalysis, len(cols))
	for i, c := range cols {
		a := analyzeColumn(c, totalRows)
		if a.profile.Role == RoleSkipped && (recoverSet[strings.ToLower(a.profile.Name)] || recoverSet[a.profile.Key]) {
			a.profile.Role = RoleDimension
			a.profile.SkipReason = ""
			a.profile.Recoverable = false
		}
		analyses[i] = a
	}

	detectHierarchies(analyses)

	cfg := &Config{
		Name:       t.Name,
		RowCount:   totalRows,
		Columns:    make([]ColumnProfile, len(analyses)),
		ProfiledAt: now().Format(time.RFC3339),
	}
	if opt.Name != "" {
		cfg.Name = opt.Name
	}
	for i, a := range analyses {
		cfg.Columns[i] = a.profile
	}
	cfg.Currency = detectCurrencyConfig(cfg.Columns)
	return cfg
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnAnalysis struct {
	profile  ColumnProfile
	cells    []string // String() of every row, "" for empty
	effType  table.Type
	decimals bool
}

func isEmpty(v table.Value) bool {
	if v.IsNull() {
		return true
	}
	if v.Kind != table.KindText {
		return false
	}
	s := strings.TrimSpace(v.Str)
	return s == "" || s == "null" || s == "NULL" || s == "N/A" || s == "n/a"
}

func analyzeColumn(c *table.Column, totalRows int) columnAnalysis {
	a := columnAnalysis{
		profile: ColumnProfile{
			Name:        c.Name,
			Key:         toSnakeCase(c.Name),
			DisplayName: toDisplayName(c.Name),
		},
		cells: make([]string, c.Len()),
	}
	p := &a.profile

	present := table.NewColumn(c.Name)
	uniqueSet := make(map[string]bool)
	for i, v := range c.Values() {
		if isEmpty(v) {
			p.NullCount++
			continue
		}
		s := strings.TrimSpace(v.String())
		a.cells[i] = s
		uniqueSet[s] = true
		present.Append(v)
		if v.Kind == table.KindNumber && v.Num != math.Trunc(v.Num) {
			a.decimals = true
		}
	}
	p.NullCount += totalRows - c.Len()
	p.UniqueCount = len(uniqueSet)
	a.effType = present.Type()
	p.Type = a.effType.String()

	if present.Len() == 0 {
		p.Role = RoleSkipped
		p.SkipReason = "All values are empty/null"
		return a
	}

	p.Samples = collectSamples(uniqueSet, 10)

	switch a.effType {
	case table.TypeText:
		p.IsCurrencyCode = detectCurrencyCodes(p.Samples)
		p.IsTemporal, p.TemporalFormat = detectTemporalPattern(p.Samples)
		p.IsBool = detectBool(uniqueSet)
	case table.TypeDateTime:
		p.IsTemporal = true
	case table.TypeNumber:
		p.Stats = numericStats(present)
	}

	a.classifyRole(totalRows)

	switch {
	case p.UniqueCount <= 10:
		p.CardinalityHint = "low"
	case p.UniqueCount <= 100:
		p.CardinalityHint = "medium"
	default:
		p.CardinalityHint = "high"
	}
	return a
}

// classifyRole determines dimension vs measure vs skip.
func (a *columnAnalysis) classifyRole(totalRows int) {
	p := &a.profile
	switch a.effType {
	case table.TypeNumber:
		if p.UniqueCount == totalRows && totalRows > 10 && !a.decimals {
			p.Role = RoleSkipped
			p.SkipReason = "Unique per row, likely an ID column"
			return
		}
		if a.decimals {
			p.Role = RoleMeasure
			return
		}
		// Few distinct whole numbers relative to rows → coded dimension (priority 1-5)
		uniqueRatio := float64(p.UniqueCount) / float64(totalRows)
		if p.UniqueCount < 20 && uniqueRatio < 0.3 {
			p.Role = RoleDimension
			return
		}
		p.Role = RoleMeasure

	case table.TypeDateTime:
		p.Role = RoleDimension

	default:
		if p.IsBool {
			p.Role = RoleDimension
			return
		}
		if p.UniqueCount == totalRows && totalRows > 10 {
			p.Role = RoleSkipped
			p.SkipReason = "Unique per row, likely an identifier"
			return
		}
		if p.UniqueCount > totalRows/2 && p.UniqueCount > 50 {
			p.Role = RoleSkipped
			p.SkipReason = fmt.Sprintf("High cardinality (%d unique values), not useful for grouping", p.UniqueCount)
			p.Recoverable = true
			return
		}
		p.Role = RoleDimension
	}
}

func numericStats(c *table.Column) *NumericStats {
	var s NumericStats
	var err error
	if s.Min, err = c.Min(); err != nil {
		return nil
	}
	s.Max, _ = c.Max()
	s.Sum, _ = c.Sum()
	s.Mean, _ = c.Mean()
	s.Std, _ = c.Std(true)
	return &s
}

// ============================================================================
// SPECIAL PATTERN DETECTION
// ============================================================================

// Known ISO 4217 currency codes (common subset).
var knownCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CNY": true,
	"INR": true, "SGD": true, "AUD": true, "CAD": true, "CHF": true,
	"HKD": true, "NZD": true, "SEK": true, "KRW": true, "NOK": true,
	"MXN": true, "BRL": true, "ZAR": true, "THB": true, "MYR": true,
	"IDR": true, "PHP": true, "VND": true, "TWD": true, "AED": true,
	"SAR": true, "QAR": true, "PLN": true, "CZK": true, "ILS": true,
	"DKK": true, "RUB": true, "TRY": true, "ARS": true, "CLP": true,
}

// detectCurrencyCodes checks if sample values are ISO currency codes.
func detectCurrencyCodes(samples []string) bool {
	if len(samples) == 0 {
		return false
	}
	matches := 0
	for _, s := range samples {
		if knownCurrencies[strings.TrimSpace(s)] {
			matches++
		}
	}
	return matches > 0 && float64(matches)/float64(len(samples)) >= 0.8
}

func detectBool(values map[string]bool) bool {
	if len(values) == 0 || len(values) > 2 {
		return false
	}
	for v := range values {
		switch strings.ToLower(v) {
		case "true", "false", "yes", "no":
		default:
			return false
		}
	}
	return true
}

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"},  // Jan-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},           // 2026-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},          // Q1-2026
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},        // Q1 2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},   // January 2026
}

// detectTemporalPattern checks if text values look like months or quarters.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}
	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}
	return false, ""
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of B maps to exactly one value of A, and A has fewer
// unique values, A is a parent of B. Among valid parents the closest
// (highest cardinality) wins.
func detectHierarchies(cols []columnAnalysis) {
	for i := range cols {
		child := &cols[i]
		if child.profile.Role != RoleDimension {
			continue
		}
		bestParent := ""
		bestUniques := 0

		for j := range cols {
			parent := &cols[j]
			if i == j || parent.profile.Role != RoleDimension {
				continue
			}
			if parent.profile.UniqueCount >= child.profile.UniqueCount {
				continue
			}
			if !functionallyDependent(child.cells, parent.cells) {
				continue
			}
			if parent.profile.UniqueCount > bestUniques {
				bestParent = parent.profile.Key
				bestUniques = parent.profile.UniqueCount
			}
		}
		child.profile.Parent = bestParent
	}
}

// functionallyDependent reports whether every child value maps to one
// parent value. Rows with either side empty are ignored.
func functionallyDependent(child, parent []string) bool {
	mapping := make(map[string]string)
	for r := range child {
		if r >= len(parent) || child[r] == "" || parent[r] == "" {
			continue
		}
		if existing, ok := mapping[child[r]]; ok {
			if existing != parent[r] {
				return false
			}
		} else {
			mapping[child[r]] = parent[r]
		}
	}
	return len(mapping) > 1
}

// detectCurrencyConfig returns the first currency-code dimension.
func detectCurrencyConfig(cols []ColumnProfile) *CurrencyConfig {
	for _, c := range cols {
		if c.Role == RoleDimension && c.IsCurrencyCode {
			base := ""
			if len(c.Samples) > 0 {
				base = c.Samples[0]
			}
			return &CurrencyConfig{CodeColumn: c.Key, BaseCurrency: base}
		}
	}
	return nil
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = strings.ToLower(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// toDisplayName cleans a header for human display.
// "story_points" → "Story Points", "assignee" → "Assignee"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples values, sorted for stable output.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
