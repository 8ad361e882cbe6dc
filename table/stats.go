package table

import (
	"fmt"
	"math"
)

// ============================================================================
// STATISTICS: Number columns only
// ============================================================================
// Null cells are skipped. population selects the divisor n over n-1 for
// Variance, Std and Covariance alike. A sample statistic over fewer than
// two values is NaN, as is any statistic over zero values except Sum.
// ============================================================================

func (c *Column) numbers() ([]float64, error) {
	if c.typ != TypeNumber {
		return nil, fmt.Errorf("column %q is %s: %w", c.Name, c.typ, ErrNotNumeric)
	}
	out := make([]float64, 0, len(c.values))
	for _, v := range c.values {
		if v.Kind == KindNumber {
			out = append(out, v.Num)
		}
	}
	return out, nil
}

// Sum of all cells.
func (c *Column) Sum() (float64, error) {
	xs, err := c.numbers()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total, nil
}

// Mean is NaN for an empty column.
func (c *Column) Mean() (float64, error) {
	xs, err := c.numbers()
	if err != nil {
		return 0, err
	}
	return mean(xs), nil
}

func (c *Column) Min() (float64, error) {
	xs, err := c.numbers()
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return math.NaN(), nil
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m, nil
}

func (c *Column) Max() (float64, error) {
	xs, err := c.numbers()
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return math.NaN(), nil
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m, nil
}

// Variance with divisor n when population is set, n-1 otherwise.
func (c *Column) Variance(population bool) (float64, error) {
	xs, err := c.numbers()
	if err != nil {
		return 0, err
	}
	return covariance(xs, xs, population), nil
}

// Std is the square root of Variance.
func (c *Column) Std(population bool) (float64, error) {
	v, err := c.Variance(population)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// Covariance of two Number columns of equal length. Rows where either
// cell is null are skipped.
func Covariance(a, b *Column, population bool) (float64, error) {
	xs, ys, err := paired(a, b)
	if err != nil {
		return 0, err
	}
	return covariance(xs, ys, population), nil
}

// Correlation is the Pearson coefficient of two Number columns.
func Correlation(a, b *Column) (float64, error) {
	xs, ys, err := paired(a, b)
	if err != nil {
		return 0, err
	}
	cov := covariance(xs, ys, true)
	sx := math.Sqrt(covariance(xs, xs, true))
	sy := math.Sqrt(covariance(ys, ys, true))
	return cov / (sx * sy), nil
}

func paired(a, b *Column) ([]float64, []float64, error) {
	if _, err := a.numbers(); err != nil {
		return nil, nil, err
	}
	if _, err := b.numbers(); err != nil {
		return nil, nil, err
	}
	if a.Len() != b.Len() {
		return nil, nil, fmt.Errorf("columns %q (%d) and %q (%d): %w", a.Name, a.Len(), b.Name, b.Len(), ErrDimensionMismatch)
	}
	xs := make([]float64, 0, a.Len())
	ys := make([]float64, 0, b.Len())
	for i := range a.values {
		x, y := a.values[i], b.values[i]
		if x.Kind != KindNumber || y.Kind != KindNumber {
			continue
		}
		xs = append(xs, x.Num)
		ys = append(ys, y.Num)
	}
	return xs, ys, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

func covariance(xs, ys []float64, population bool) float64 {
	n := len(xs)
	divisor := float64(n - 1)
	if population {
		divisor = float64(n)
	}
	if n == 0 || divisor <= 0 {
		return math.NaN()
	}
	mx, my := mean(xs), mean(ys)
	var acc float64
	for i := range xs {
		acc += (xs[i] - mx) * (ys[i] - my)
	}
	return acc / divisor
}

// ============================================================================
// TABLE-LEVEL WRAPPERS: address columns by name
// ============================================================================

func (t *Table) numericColumn(name string) (*Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Type() != TypeNumber {
		return nil, fmt.Errorf("column %q is %s: %w", name, c.Type(), ErrNotNumeric)
	}
	return c, nil
}

func (t *Table) Mean(name string) (float64, error) {
	c, err := t.numericColumn(name)
	if err != nil {
		return 0, err
	}
	return c.Mean()
}

func (t *Table) Variance(name string, population bool) (float64, error) {
	c, err := t.numericColumn(name)
	if err != nil {
		return 0, err
	}
	return c.Variance(population)
}

func (t *Table) Std(name string, population bool) (float64, error) {
	c, err := t.numericColumn(name)
	if err != nil {
		return 0, err
	}
	return c.Std(population)
}

func (t *Table) Covariance(a, b string, population bool) (float64, error) {
	ca, err := t.numericColumn(a)
	if err != nil {
		return 0, err
	}
	cb, err := t.numericColumn(b)
	if err != nil {
		return 0, err
	}
	return Covariance(ca, cb, population)
}

func (t *Table) Correlation(a, b string) (float64, error) {
	ca, err := t.numericColumn(a)
	if err != nil {
		return 0, err
	}
	cb, err := t.numericColumn(b)
	if err != nil {
		return 0, err
	}
	return Correlation(ca, cb)
}
