// Package tabula is a small in-memory tabular data engine.
//
// Loosely typed delimited text becomes typed, columnar tables
// (package table, package helpers); tables can be staged into an
// embedded SQL engine and queried (package sqlbridge); a session catalog
// keeps named tables and views loaded from pluggable sources (packages
// catalog and connector); and trees of named steps pass key/value maps
// between actions (package steps).
//
// Usage:
//
//	t, err := helpers.ParseCSV(data, helpers.ParseOptions{Name: "sales"})
//	totals, err := sqlbridge.Query(ctx,
//	    "SELECT region, SUM(amount) AS total FROM @Table1 GROUP BY region",
//	    []*table.Table{t})
//
// Nothing here calls an external service unless a connector is asked to.
package tabula
